package workflow

// Decision is the outcome an actor records at a stage
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// IsValid returns true for APPROVED or REJECTED
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// Facts is the recorded state of one voucher as seen by the decision functions.
// It is built from approval facts and quorum votes only, never from the audit log.
type Facts struct {
	Status State
	// Decisions maps stage number to the decision recorded there
	Decisions map[int]Decision
	// QuorumVotes is the count of distinct reviewers who voted
	QuorumVotes int
	// QuorumThreshold is the threshold read at evaluation time
	QuorumThreshold int
}

// stageSatisfied applies the per-stage completion rule
func stageSatisfied(s Stage, facts Facts) bool {
	if s.Quorum {
		return QuorumSatisfied(facts.QuorumVotes, facts.QuorumThreshold)
	}
	return facts.Decisions[s.Number] == DecisionApproved
}
