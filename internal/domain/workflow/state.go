package workflow

// State represents the lifecycle status of a disbursement voucher
type State string

const (
	StateDraft     State = "DRAFT"
	StatePending   State = "PENDING"
	StateValidated State = "VALIDATED"
	StateApproved  State = "APPROVED"
	StateReleased  State = "RELEASED"
	StateRejected  State = "REJECTED"
	StateCancelled State = "CANCELLED"
)

var validStates = map[State]bool{
	StateDraft:     true,
	StatePending:   true,
	StateValidated: true,
	StateApproved:  true,
	StateReleased:  true,
	StateRejected:  true,
	StateCancelled: true,
}

var terminalStates = map[State]bool{
	StateReleased:  true,
	StateRejected:  true,
	StateCancelled: true,
}

// forwardRank orders the non-terminal progression. Side exits have no rank.
var forwardRank = map[State]int{
	StateDraft:     0,
	StatePending:   1,
	StateValidated: 2,
	StateApproved:  3,
	StateReleased:  4,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid voucher status
func (s State) IsValid() bool {
	return validStates[s]
}

// IsIntermediate reports whether s is a display status a variant may set between stages
func (s State) IsIntermediate() bool {
	return s == StateValidated || s == StateApproved
}

// rank returns the forward position of s, or -1 for side exits
func (s State) rank() int {
	if r, ok := forwardRank[s]; ok {
		return r
	}
	return -1
}
