package dialog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/guildreply/guildreply/pkg/chat"
)

// DefaultMaxHistory is the maximum number of state records before eviction.
const DefaultMaxHistory = 100

// Key binds a session to one user in one guild.
type Key struct {
	GuildID uint64
	UserID  uint64
}

// StateRecord records a state transition for audit purposes.
type StateRecord struct {
	FromState State     `json:"from_state"`
	ToState   State     `json:"to_state"`
	Input     string    `json:"input"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a running dialogue as seen by the Manager. It is
// implemented by *Session.
type Conversation interface {
	SessionID() string
	DialogName() string
	Key() Key
	CurrentState() State
	LastActive() time.Time

	start(ctx context.Context, origin chat.Message) (Transition, error)
	step(ctx context.Context, msg chat.Message) (Transition, State, error)
	channel() uint64
}

// Session holds the mutable state of one dialogue. All access is thread-safe.
type Session[D any] struct {
	mu         sync.Mutex
	def        *Definition[D]
	maxHistory int

	id         string
	key        Key
	state      State
	data       D
	history    []StateRecord
	startTime  time.Time
	lastActive time.Time
	channelID  uint64
}

var _ Conversation = (*Session[struct{}])(nil)

// NewSession creates a session of def for key, seeded with data. The
// session sits in StateStart until started.
func NewSession[D any](def *Definition[D], key Key, data D) *Session[D] {
	now := time.Now()
	return &Session[D]{
		def:        def,
		maxHistory: DefaultMaxHistory,
		id:         xid.New().String(),
		key:        key,
		state:      StateStart,
		data:       data,
		startTime:  now,
		lastActive: now,
	}
}

// SessionID returns the unique id of this session.
func (s *Session[D]) SessionID() string { return s.id }

// DialogName returns the name of the definition driving the session.
func (s *Session[D]) DialogName() string { return s.def.Name }

// Key returns the (guild, user) pair the session is bound to.
func (s *Session[D]) Key() Key { return s.key }

// StartTime returns when the session was created.
func (s *Session[D]) StartTime() time.Time { return s.startTime }

// CurrentState returns the current state name.
func (s *Session[D]) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive returns when the session last consumed a message.
func (s *Session[D]) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Data returns a shallow copy of the working data.
func (s *Session[D]) Data() D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// CopyHistory returns a snapshot of the state history.
func (s *Session[D]) CopyHistory() []StateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]StateRecord, len(s.history))
	copy(cp, s.history)
	return cp
}

func (s *Session[D]) channel() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// recordTransition adds a state transition to the audit history.
// Evicts oldest 10% of entries when the history cap is reached.
// Caller holds s.mu.
func (s *Session[D]) recordTransition(from, to State, input string) {
	if len(s.history) >= s.maxHistory {
		evict := s.maxHistory / 10
		if evict < 1 {
			evict = 1
		}
		s.history = s.history[evict:]
	}
	s.history = append(s.history, StateRecord{
		FromState: from,
		ToState:   to,
		Input:     input,
		Timestamp: time.Now(),
	})
	s.state = to
}

func (s *Session[D]) start(ctx context.Context, origin chat.Message) (Transition, error) {
	if st := s.CurrentState(); st != StateStart {
		return Transition{}, fmt.Errorf("dialogue %q already started (state %q)", s.def.Name, st)
	}
	origin.Content = ""
	tr, _, err := s.step(ctx, origin)
	return tr, err
}
