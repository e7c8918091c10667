package dialog

import (
	"context"
	"fmt"
	"time"

	"github.com/guildreply/guildreply/pkg/chat"
)

// Start runs the start handler with empty content and returns the first
// prompt. origin supplies the guild, user and channel context.
func (s *Session[D]) Start(ctx context.Context, origin chat.Message) (Transition, error) {
	return s.start(ctx, origin)
}

// Step feeds msg to the handler of the current state and moves the session
// to the state it returns. On error the session is left unchanged.
func (s *Session[D]) Step(ctx context.Context, msg chat.Message) (Transition, error) {
	tr, _, err := s.step(ctx, msg)
	return tr, err
}

func (s *Session[D]) step(ctx context.Context, msg chat.Message) (Transition, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	if from == StateFinal {
		return Transition{}, from, ErrSessionFinished
	}

	spec, ok := s.def.States[from]
	if !ok || spec.Handle == nil {
		return Transition{}, from, fmt.Errorf("%w: dialogue %q state %q", ErrUnknownState, s.def.Name, from)
	}

	data := s.data
	tr := spec.Handle(ctx, from, msg, &data)
	if !s.def.allows(from, tr.Next) {
		return Transition{}, from, fmt.Errorf("%w: dialogue %q: %q -> %q",
			ErrUnexpectedTransition, s.def.Name, from, tr.Next)
	}

	s.data = data
	s.recordTransition(from, tr.Next, msg.Content)
	s.lastActive = time.Now()
	s.channelID = msg.ChannelID
	return tr, from, nil
}

// Finished reports whether the session reached StateFinal.
func (s *Session[D]) Finished() bool {
	return s.CurrentState() == StateFinal
}
