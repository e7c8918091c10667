package dialog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pitabwire/frame/workerpool"

	"github.com/guildreply/guildreply/pkg/chat"
	"github.com/guildreply/guildreply/pkg/events"
)

const (
	defaultIdleTimeout  = 15 * time.Minute
	defaultReapInterval = 1 * time.Minute
)

// Notices sent by the manager on lifecycle changes it initiates.
const (
	NoticeReplaced  = "Your previous dialogue was cancelled because a new one was started."
	NoticeCancelled = "The dialogue was cancelled."
	NoticeExpired   = "The dialogue expired due to inactivity."
	NoticeFailed    = "Something went wrong, the dialogue was ended."
)

// Option configures a Manager.
type Option func(*Manager)

// WithWorkerPool runs the reaper on the given pool instead of a bare goroutine.
func WithWorkerPool(pool workerpool.WorkerPool) Option {
	return func(m *Manager) { m.pool = pool }
}

// WithIdleTimeout sets how long a session may sit without input before the
// reaper ends it. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithReapInterval sets how often the reaper sweeps.
func WithReapInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reapInterval = d
		}
	}
}

// WithPublisher emits dialogue lifecycle events to pub.
func WithPublisher(pub *events.Publisher) Option {
	return func(m *Manager) { m.publisher = pub }
}

// WithAddressing rewrites every dialogue response before it is sent, for
// example to mention the user the dialogue belongs to.
func WithAddressing(fn func(userID uint64, text string) string) Option {
	return func(m *Manager) { m.address = fn }
}

// WithCancelWord sets the input that cancels an active dialogue. Empty
// disables cancellation by message.
func WithCancelWord(word string) Option {
	return func(m *Manager) { m.cancelWord = strings.TrimSpace(word) }
}

// Manager binds at most one running dialogue to each (guild, user) pair and
// routes that user's messages to it.
type Manager struct {
	sessions sync.Map // Key -> Conversation

	sender       chat.Sender
	pool         workerpool.WorkerPool
	publisher    *events.Publisher
	address      func(userID uint64, text string) string
	cancelWord   string
	idleTimeout  time.Duration
	reapInterval time.Duration
}

// NewManager creates a session manager that answers through sender.
func NewManager(sender chat.Sender, opts ...Option) *Manager {
	m := &Manager{
		sender:       sender,
		idleTimeout:  defaultIdleTimeout,
		reapInterval: defaultReapInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin starts conv for the author of origin. The start handler runs with
// empty content and its responses go to origin's channel. An existing
// session for the same user is replaced and its user told so; replaced
// reports whether that happened.
func (m *Manager) Begin(ctx context.Context, conv Conversation, origin chat.Message) (replaced bool, err error) {
	tr, err := conv.start(ctx, origin)
	if err != nil {
		return false, err
	}

	key := conv.Key()
	if tr.Next != StateFinal {
		prev, loaded := m.sessions.Swap(key, conv)
		if loaded && prev != conv {
			replaced = true
			old := prev.(Conversation)
			m.send(ctx, key.UserID, old.channel(), NoticeReplaced)
			m.emit(ctx, events.DialogueCancelled, old, "replaced")
		}
	}

	m.emit(ctx, events.DialogueStarted, conv, "")
	m.send(ctx, key.UserID, origin.ChannelID, tr.Responses...)
	if tr.Next == StateFinal {
		m.emit(ctx, events.DialogueFinished, conv, "")
	}
	return replaced, nil
}

// Route feeds msg to the author's active dialogue, if any, and reports
// whether the message was consumed.
func (m *Manager) Route(ctx context.Context, msg chat.Message) bool {
	key := Key{GuildID: msg.GuildID, UserID: msg.AuthorID}
	v, ok := m.sessions.Load(key)
	if !ok {
		return false
	}
	conv := v.(Conversation)

	if m.cancelWord != "" && strings.EqualFold(strings.TrimSpace(msg.Content), m.cancelWord) {
		if m.sessions.CompareAndDelete(key, conv) {
			m.send(ctx, key.UserID, msg.ChannelID, NoticeCancelled)
			m.emit(ctx, events.DialogueCancelled, conv, "cancel word")
		}
		return true
	}

	tr, from, err := conv.step(ctx, msg)
	if err != nil {
		slog.WarnContext(ctx, "dialogue step failed, ending session",
			slog.String("session_id", conv.SessionID()),
			slog.String("dialog", conv.DialogName()),
			slog.String("error", err.Error()))
		if m.sessions.CompareAndDelete(key, conv) {
			m.send(ctx, key.UserID, msg.ChannelID, NoticeFailed)
			m.emit(ctx, events.DialogueCancelled, conv, err.Error())
		}
		return true
	}

	m.send(ctx, key.UserID, msg.ChannelID, tr.Responses...)

	if from != tr.Next {
		_ = m.publisher.Emit(ctx, events.DialogueTransition, conv.SessionID(), &events.DialogueTransitionData{
			DialogName: conv.DialogName(),
			FromState:  string(from),
			ToState:    string(tr.Next),
		})
	}
	if tr.Next == StateFinal {
		m.sessions.CompareAndDelete(key, conv)
		m.emit(ctx, events.DialogueFinished, conv, "")
	}
	return true
}

// Cancel ends the dialogue bound to key without notifying the user.
func (m *Manager) Cancel(ctx context.Context, key Key) bool {
	v, ok := m.sessions.LoadAndDelete(key)
	if !ok {
		return false
	}
	m.emit(ctx, events.DialogueCancelled, v.(Conversation), "cancelled")
	return true
}

// Active returns the dialogue bound to key.
func (m *Manager) Active(key Key) (Conversation, bool) {
	v, ok := m.sessions.Load(key)
	if !ok {
		return nil, false
	}
	return v.(Conversation), true
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	n := 0
	m.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// StartReaper begins the background idle-session reaper. It stops when ctx
// is done.
func (m *Manager) StartReaper(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}
	reap := func() {
		ticker := time.NewTicker(m.reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.reapIdle(ctx, now)
			}
		}
	}
	if m.pool != nil {
		if err := m.pool.Submit(ctx, reap); err == nil {
			return
		}
	}
	go reap()
}

func (m *Manager) reapIdle(ctx context.Context, now time.Time) {
	m.sessions.Range(func(k, v any) bool {
		conv := v.(Conversation)
		if now.Sub(conv.LastActive()) <= m.idleTimeout {
			return true
		}
		if m.sessions.CompareAndDelete(k, conv) {
			slog.WarnContext(ctx, "reaping idle dialogue session",
				slog.String("session_id", conv.SessionID()),
				slog.String("dialog", conv.DialogName()))
			m.send(ctx, conv.Key().UserID, conv.channel(), NoticeExpired)
			m.emit(ctx, events.DialogueExpired, conv, "idle")
		}
		return true
	})
}

func (m *Manager) send(ctx context.Context, userID, channelID uint64, texts ...string) {
	for _, text := range texts {
		if m.address != nil {
			text = m.address(userID, text)
		}
		if err := m.sender.Send(ctx, channelID, text); err != nil {
			slog.WarnContext(ctx, "dialogue send failed",
				slog.String("channel_id", strconv.FormatUint(channelID, 10)),
				slog.String("error", err.Error()))
		}
	}
}

func (m *Manager) emit(ctx context.Context, t events.EventType, conv Conversation, reason string) {
	key := conv.Key()
	_ = m.publisher.Emit(ctx, t, conv.SessionID(), &events.DialogueData{
		DialogName: conv.DialogName(),
		GuildID:    key.GuildID,
		UserID:     key.UserID,
		Reason:     reason,
	})
}
