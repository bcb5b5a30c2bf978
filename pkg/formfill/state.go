package formfill

import "fmt"

// State is a step of the attempt state machine.
type State string

const (
	StateStarted             State = "started"
	StateNavigated           State = "navigated"
	StateFieldsResolved      State = "fields_resolved"
	StateDraftHeld           State = "draft_held"
	StateSubmissionAttempted State = "submission_attempted"
	StateFailed              State = "failed"
	StateEvidenceCaptured    State = "evidence_captured"
	StateContextClosed       State = "context_closed"
)

// transitions lists the legal next states. StateFailed is reachable from
// every state before evidence is captured.
var transitions = map[State][]State{
	StateStarted:             {StateNavigated, StateFailed},
	StateNavigated:           {StateFieldsResolved, StateFailed},
	StateFieldsResolved:      {StateDraftHeld, StateSubmissionAttempted, StateFailed},
	StateDraftHeld:           {StateEvidenceCaptured, StateFailed},
	StateSubmissionAttempted: {StateEvidenceCaptured, StateFailed},
	StateFailed:              {StateEvidenceCaptured},
	StateEvidenceCaptured:    {StateContextClosed},
	StateContextClosed:       nil,
}

// stateMachine tracks the states an attempt has passed through.
type stateMachine struct {
	current State
	history []State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateStarted, history: []State{StateStarted}}
}

// advance moves to next, rejecting transitions the attempt flow never makes.
func (m *stateMachine) advance(next State) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return fmt.Errorf("illegal attempt transition %s -> %s", m.current, next)
}

// force records next without validation. Teardown uses it so that the
// context_closed state is always recorded.
func (m *stateMachine) force(next State) {
	m.current = next
	m.history = append(m.history, next)
}

// Current returns the current state.
func (m *stateMachine) Current() State {
	return m.current
}

// History returns a copy of the visited states.
func (m *stateMachine) History() []State {
	return append([]State(nil), m.history...)
}
