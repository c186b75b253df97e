package turn

// State is a step of the turn state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingCompletion
	StateAwaitingToolResults
	StateDone
	StateFailed
	// StateAwaitingUser: the last batch only rendered widgets; the user answers next.
	StateAwaitingUser
	// StateRoundTripLimit: the model kept calling tools past the configured cap.
	StateRoundTripLimit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateAwaitingToolResults:
		return "awaiting_tool_results"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateAwaitingUser:
		return "awaiting_user"
	case StateRoundTripLimit:
		return "round_trip_limit"
	}
	return "unknown"
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateAwaitingUser, StateRoundTripLimit:
		return true
	}
	return false
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
