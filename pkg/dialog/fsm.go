package dialog

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidDefinition is returned by Validate for malformed definitions.
	ErrInvalidDefinition = errors.New("invalid dialogue definition")
	// ErrUnknownState is returned when a session sits in a state with no handler.
	ErrUnknownState = errors.New("unknown dialogue state")
	// ErrUnexpectedTransition is returned when a handler moves to a state it
	// did not declare.
	ErrUnexpectedTransition = errors.New("unexpected dialogue transition")
	// ErrSessionFinished is returned when stepping a session that reached final.
	ErrSessionFinished = errors.New("dialogue session finished")
)

// Validate checks the definition for consistency.
func (d *Definition[D]) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	if _, ok := d.States[StateStart]; !ok {
		return fmt.Errorf("%w: dialogue %q: state %q is required", ErrInvalidDefinition, d.Name, StateStart)
	}
	if _, ok := d.States[StateFinal]; ok {
		return fmt.Errorf("%w: dialogue %q: state %q is terminal and takes no handler",
			ErrInvalidDefinition, d.Name, StateFinal)
	}

	for name, spec := range d.States {
		if name == "" {
			return fmt.Errorf("%w: dialogue %q: empty state name", ErrInvalidDefinition, d.Name)
		}
		if spec.Handle == nil {
			return fmt.Errorf("%w: dialogue %q state %q: handler is required", ErrInvalidDefinition, d.Name, name)
		}
		for _, target := range spec.Next {
			if target == StateFinal {
				continue
			}
			if _, ok := d.States[target]; !ok {
				return fmt.Errorf("%w: dialogue %q state %q: target %q not found",
					ErrInvalidDefinition, d.Name, name, target)
			}
		}
	}

	return nil
}

// MustDefinition validates d and panics on error. It is meant for
// package-level definitions built at init time.
func MustDefinition[D any](d Definition[D]) *Definition[D] {
	if err := d.Validate(); err != nil {
		panic(err)
	}
	return &d
}

// allows reports whether from may move to to.
func (d *Definition[D]) allows(from, to State) bool {
	if from == to {
		return true
	}
	spec, ok := d.States[from]
	if !ok {
		return false
	}
	return slices.Contains(spec.Next, to)
}
