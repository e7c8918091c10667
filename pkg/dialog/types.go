package dialog

import (
	"context"

	"github.com/guildreply/guildreply/pkg/chat"
)

// State names a node of a dialogue state machine.
type State string

// Reserved states. StateStart is entered implicitly when a session is
// created; reaching StateFinal ends the session.
const (
	StateStart State = "start"
	StateFinal State = "final"
)

// Transition is the result of one handler invocation.
type Transition struct {
	Next      State
	Responses []string
}

// Goto builds a Transition to next that emits the given responses.
func Goto(next State, responses ...string) Transition {
	return Transition{Next: next, Responses: responses}
}

// Handler consumes one message for the current state. It may mutate data
// and returns where the dialogue goes next. Returning state itself re-prompts.
type Handler[D any] func(ctx context.Context, state State, msg chat.Message, data *D) Transition

// StateSpec describes one state: its handler and the states it may move to.
// A state may always transition to itself.
type StateSpec[D any] struct {
	Handle Handler[D]
	Next   []State
}

// Definition is an immutable, named dialogue. D is the working data that
// each session accumulates.
type Definition[D any] struct {
	Name   string
	States map[State]StateSpec[D]
}
