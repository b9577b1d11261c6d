package workflow

// StageState is the display state of one stage
type StageState string

const (
	StageCompleted StageState = "completed"
	StageCurrent   StageState = "current"
	StagePending   StageState = "pending"
	StageRejected  StageState = "rejected"
)

// StageProgress is one row of a progress projection
type StageProgress struct {
	Stage  int        `json:"stage"`
	Label  string     `json:"label"`
	Role   Role       `json:"role"`
	State  StageState `json:"state"`
	Quorum bool       `json:"quorum,omitempty"`
	// Votes and Required are set for the quorum stage only
	Votes    int `json:"votes,omitempty"`
	Required int `json:"required,omitempty"`
}

// Project derives the ordered stage states from facts alone.
// Completed stages follow the same rule as CanAct. The first incomplete stage
// is current and later ones are pending; on a rejected or cancelled voucher
// every incomplete stage is rejected instead.
func Project(def *Definition, facts Facts) []StageProgress {
	halted := facts.Status == StateRejected || facts.Status == StateCancelled
	out := make([]StageProgress, 0, len(def.Stages))
	currentSeen := false

	for _, s := range def.Stages {
		row := StageProgress{
			Stage:  s.Number,
			Label:  s.Label,
			Role:   s.Role,
			Quorum: s.Quorum,
		}
		if s.Quorum {
			row.Votes = facts.QuorumVotes
			row.Required = facts.QuorumThreshold
		}

		switch {
		case stageSatisfied(s, facts):
			row.State = StageCompleted
		case halted:
			row.State = StageRejected
		case !currentSeen:
			row.State = StageCurrent
			currentSeen = true
		default:
			row.State = StagePending
		}

		out = append(out, row)
	}

	return out
}
