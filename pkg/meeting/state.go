package meeting

import (
	"fmt"
)

// State is a meeting phase
type State string

const (
	StateInit     State = "INIT"
	StatePrep     State = "PREP"
	StateDiscuss  State = "DISCUSS"
	StateConclude State = "CONCLUDE"
	StateVote     State = "VOTE"
	StateDone     State = "DONE"
	StateFailed   State = "FAILED"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// PhaseError reports the phase a meeting failed in
type PhaseError struct {
	Phase State
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("meeting failed in %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
