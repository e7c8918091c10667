// Package replies wires the reply rule store, the trigger engine and the
// add/modify dialogues behind the reply command.
package replies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pitabwire/util"
	"golang.org/x/sync/errgroup"

	"github.com/guildreply/guildreply/pkg/chat"
	"github.com/guildreply/guildreply/pkg/dialog"
	"github.com/guildreply/guildreply/pkg/events"
	"github.com/guildreply/guildreply/pkg/reply"
	"github.com/guildreply/guildreply/pkg/storage"
)

const (
	DefaultPrefix  = "!bot"
	DefaultKeyword = "reply"

	// maxParallelIO bounds concurrent backend calls in LoadAll and FlushAll.
	maxParallelIO = 8
)

// Option configures a Module.
type Option func(*Module)

// WithPrefix sets the bot command prefix.
func WithPrefix(prefix string) Option {
	return func(m *Module) {
		if prefix != "" {
			m.parser.Prefix = prefix
		}
	}
}

// WithKeyword sets the module keyword that follows the prefix.
func WithKeyword(keyword string) Option {
	return func(m *Module) {
		if keyword != "" {
			m.parser.Keyword = keyword
		}
	}
}

// WithPublisher emits rule and dialogue events to pub.
func WithPublisher(pub *events.Publisher) Option {
	return func(m *Module) { m.publisher = pub }
}

// WithDialogOptions configures the dialogue session manager.
func WithDialogOptions(opts ...dialog.Option) Option {
	return func(m *Module) { m.dialogOpts = append(m.dialogOpts, opts...) }
}

// Module is the reply feature of the bot: trigger rules per guild, the
// commands that manage them and the dialogues behind add and modify.
type Module struct {
	parser     Parser
	store      *reply.Store
	engine     *reply.Engine
	dialogs    *dialog.Manager
	backend    storage.Backend
	sender     chat.Sender
	publisher  *events.Publisher
	dialogOpts []dialog.Option

	addDef    *dialog.Definition[addDraft]
	modifyDef *dialog.Definition[modifyDraft]
}

// NewModule creates the reply module over store, persisting through backend
// and answering through sender.
func NewModule(store *reply.Store, backend storage.Backend, sender chat.Sender, opts ...Option) *Module {
	m := &Module{
		parser:  Parser{Prefix: DefaultPrefix, Keyword: DefaultKeyword},
		store:   store,
		backend: backend,
		sender:  sender,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.engine = reply.NewEngine(store, sender, m.publisher)
	m.dialogs = dialog.NewManager(sender, append([]dialog.Option{dialog.WithPublisher(m.publisher)}, m.dialogOpts...)...)
	m.addDef = m.addDefinition()
	m.modifyDef = m.modifyDefinition()
	return m
}

// Store returns the rule store.
func (m *Module) Store() *reply.Store { return m.store }

// Dialogs returns the dialogue session manager.
func (m *Module) Dialogs() *dialog.Manager { return m.dialogs }

// Handle processes one inbound message and reports whether the module
// consumed it. Commands addressed to the module run first so a new dialogue
// can replace an active one; then the author's active dialogue gets the
// message; then the trigger rules are evaluated.
func (m *Module) Handle(ctx context.Context, msg chat.Message) bool {
	if parsed := m.parser.Parse(msg.Content); parsed.IsCommand {
		m.execute(ctx, msg, parsed.Args)
		return true
	}
	if m.dialogs.Route(ctx, msg) {
		return true
	}
	return m.engine.Process(ctx, msg)
}

func (m *Module) execute(ctx context.Context, msg chat.Message, args []string) {
	root := m.newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx = WithExecutionContext(ctx, &ExecutionContext{Msg: msg})
	err := root.ExecuteContext(ctx)

	text := strings.TrimSpace(out.String())
	switch {
	case err == nil:
	case errors.Is(err, ErrUsage):
		text = err.Error()
	case strings.HasPrefix(err.Error(), "unknown command"):
		text = fmt.Sprintf("%s Use `%s %s help`.", msgUnknownCommand, m.parser.Prefix, m.parser.Keyword)
	default:
		util.Log(ctx).WithError(err).Error("reply command failed")
		text = msgCommandFailed
	}

	if text == "" {
		return
	}
	if err := m.sender.Send(ctx, msg.ChannelID, text); err != nil {
		slog.WarnContext(ctx, "command response send failed",
			slog.String("channel_id", strconv.FormatUint(msg.ChannelID, 10)),
			slog.String("error", err.Error()))
	}
}

// Persist saves the guild's current rules.
func (m *Module) Persist(ctx context.Context, guildID uint64) error {
	if err := m.backend.Save(ctx, guildID, m.store.Snapshot(guildID)); err != nil {
		util.Log(ctx).WithError(err).Error("persist reply rules")
		return fmt.Errorf("persist guild %d: %w", guildID, err)
	}
	return nil
}

// Restore replaces the guild's rules with its saved backup and returns the
// number of rules loaded. origin labels the emitted event.
func (m *Module) Restore(ctx context.Context, guildID uint64, origin string) (int, error) {
	recs, err := m.backend.Load(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("load guild %d: %w", guildID, err)
	}
	rules, err := reply.FromRecords(recs)
	if err != nil {
		return 0, fmt.Errorf("restore guild %d: %w", guildID, err)
	}
	m.store.ReplaceAll(guildID, rules)

	_ = m.publisher.Emit(ctx, events.RulesRestored, strconv.FormatUint(guildID, 10), &events.RulesRestoredData{
		GuildID: guildID,
		Count:   len(rules),
		Origin:  origin,
	})
	return len(rules), nil
}

// LoadAll restores every guild that has a backup. A guild whose backup
// cannot be read or parsed is logged and skipped; only failing to list the
// backups is an error.
func (m *Module) LoadAll(ctx context.Context) error {
	guilds, err := m.backend.Guilds(ctx)
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(maxParallelIO)
	for _, id := range guilds {
		g.Go(func() error {
			n, err := m.Restore(ctx, id, "startup")
			if errors.Is(err, storage.ErrNoBackup) {
				return nil
			}
			if err != nil {
				util.Log(ctx).WithError(err).Error("skipping unreadable reply backup")
				return nil
			}
			slog.InfoContext(ctx, "restored reply rules",
				slog.String("guild_id", strconv.FormatUint(id, 10)),
				slog.Int("count", n))
			return nil
		})
	}
	return g.Wait()
}

// FlushAll saves every guild known to the store.
func (m *Module) FlushAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelIO)
	for _, id := range m.store.Guilds() {
		g.Go(func() error {
			return m.Persist(gctx, id)
		})
	}
	return g.Wait()
}

// Reload is the storage.Watcher callback: it restores a guild whose backup
// file was edited on disk.
func (m *Module) Reload(ctx context.Context, guildID uint64) {
	n, err := m.Restore(ctx, guildID, "watcher")
	if err != nil {
		util.Log(ctx).WithError(err).Error("reload edited reply backup")
		return
	}
	slog.InfoContext(ctx, "reloaded edited reply backup",
		slog.String("guild_id", strconv.FormatUint(guildID, 10)),
		slog.Int("count", n))
}

func (m *Module) emitRule(ctx context.Context, t events.EventType, msg chat.Message, ruleID uuid.UUID) {
	_ = m.publisher.Emit(ctx, t, strconv.FormatUint(msg.GuildID, 10), &events.RuleData{
		GuildID: msg.GuildID,
		RuleID:  ruleID.String(),
		ActorID: msg.AuthorID,
	})
}
