package main

import (
	"context"
	"log"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"
	"github.com/pitabwire/util"

	grconfig "github.com/guildreply/guildreply/config"
	"github.com/guildreply/guildreply/internal/platform/discord"
	"github.com/guildreply/guildreply/internal/replies"
	"github.com/guildreply/guildreply/pkg/dialog"
	"github.com/guildreply/guildreply/pkg/events"
	"github.com/guildreply/guildreply/pkg/reply"
	"github.com/guildreply/guildreply/pkg/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[grconfig.BotConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	opts := []frame.Option{
		frame.WithConfig(&cfg),
		frame.WithName("guildreply"),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	}
	if cfg.UseDatabase() {
		opts = append(opts, frame.WithDatastore())
	}

	ctx, srv := frame.NewService(opts...)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "guildreply", eventRef)

	// --- Persistence ---
	var (
		backend storage.Backend
		files   *storage.FileStore
	)
	if cfg.UseDatabase() {
		repo := storage.NewRepository(srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"))
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("migrating reply rules: %v", err)
		}
		backend = repo
	} else {
		files, err = storage.NewFileStore(cfg.ReplyDataDir, storage.Format(cfg.ReplyDataFormat))
		if err != nil {
			log.Fatalf("creating reply file store: %v", err)
		}
		backend = files
	}

	// --- Platform ---
	adapter, err := discord.New(cfg.DiscordToken, pool)
	if err != nil {
		log.Fatalf("creating discord adapter: %v", err)
	}

	// --- Reply module ---
	dialogOpts := []dialog.Option{
		dialog.WithWorkerPool(pool),
		dialog.WithIdleTimeout(cfg.DialogueIdleTimeout()),
		dialog.WithReapInterval(cfg.DialogueReapInterval()),
		dialog.WithCancelWord(cfg.DialogueCancelWord),
	}
	if cfg.MentionDialogueUser {
		dialogOpts = append(dialogOpts, dialog.WithAddressing(discord.Mention))
	}

	module := replies.NewModule(reply.NewStore(), backend, adapter,
		replies.WithPrefix(cfg.CommandPrefix),
		replies.WithKeyword(cfg.ReplyKeyword),
		replies.WithPublisher(pub),
		replies.WithDialogOptions(dialogOpts...),
	)

	// Guilds start empty when their backups cannot be listed.
	if err := module.LoadAll(ctx); err != nil {
		util.Log(ctx).WithError(err).Error("restoring reply rules")
	}

	module.Dialogs().StartReaper(ctx)

	if files != nil && cfg.WatchReplyData {
		watcher := storage.NewWatcher(files, module.Reload)
		err := pool.Submit(ctx, func() {
			if err := watcher.Run(ctx); err != nil {
				util.Log(ctx).WithError(err).Error("reply data watcher stopped")
			}
		})
		if err != nil {
			log.Fatalf("starting reply data watcher: %v", err)
		}
	}

	if err := adapter.Start(ctx, module.Handle); err != nil {
		log.Fatalf("starting discord adapter: %v", err)
	}

	srv.Init(ctx)

	runErr := srv.Run(ctx, "")

	// Flush before the connection closes so the last edits are kept.
	if err := module.FlushAll(context.WithoutCancel(ctx)); err != nil {
		util.Log(ctx).WithError(err).Error("flushing reply rules on shutdown")
	}
	if err := adapter.Stop(); err != nil {
		util.Log(ctx).WithError(err).Error("stopping discord adapter")
	}

	if runErr != nil {
		log.Fatalf("service exited: %v", runErr)
	}
}
