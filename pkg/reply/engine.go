package reply

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/guildreply/guildreply/pkg/chat"
	"github.com/guildreply/guildreply/pkg/events"
)

// Engine evaluates inbound messages against a guild's rules and answers
// with the first rule that fires.
type Engine struct {
	store     *Store
	sender    chat.Sender
	publisher *events.Publisher
}

// NewEngine creates a trigger engine. pub may be nil.
func NewEngine(store *Store, sender chat.Sender, pub *events.Publisher) *Engine {
	return &Engine{
		store:     store,
		sender:    sender,
		publisher: pub,
	}
}

// Process reports whether msg was answered by a rule. At most one reply is
// sent. The send happens after the guild lock is released.
func (e *Engine) Process(ctx context.Context, msg chat.Message) bool {
	ruleID, text, ok := e.store.firstMatch(msg)
	if !ok {
		return false
	}

	if err := e.sender.Send(ctx, msg.ChannelID, text); err != nil {
		slog.WarnContext(ctx, "reply send failed",
			slog.String("rule_id", ruleID.String()),
			slog.String("error", err.Error()))
	}

	_ = e.publisher.Emit(ctx, events.ReplyFired, strconv.FormatUint(msg.GuildID, 10), &events.ReplyFiredData{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		RuleID:    ruleID.String(),
		MessageID: msg.ID,
	})
	return true
}
