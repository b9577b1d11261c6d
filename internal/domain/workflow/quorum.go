package workflow

import "fmt"

const (
	// DefaultQuorumThreshold is used when no threshold has been configured
	DefaultQuorumThreshold = 3
	// MinQuorumThreshold is the smallest accepted threshold
	MinQuorumThreshold = 1
	// MaxQuorumThreshold is the largest accepted threshold
	MaxQuorumThreshold = 10
)

// VoteResult is the outcome of recording a quorum review
type VoteResult string

const (
	VoteAccepted  VoteResult = "ACCEPTED"
	VoteDuplicate VoteResult = "DUPLICATE"
)

// ValidateQuorumThreshold rejects thresholds outside [MinQuorumThreshold, MaxQuorumThreshold].
// Values are never clamped.
func ValidateQuorumThreshold(n int) error {
	if n < MinQuorumThreshold || n > MaxQuorumThreshold {
		return fmt.Errorf("%w: quorum threshold %d outside [%d, %d]", ErrConfiguration, n, MinQuorumThreshold, MaxQuorumThreshold)
	}
	return nil
}

// QuorumSatisfied reports whether votes reach the threshold.
// An invalid threshold is never satisfied.
func QuorumSatisfied(votes, threshold int) bool {
	if ValidateQuorumThreshold(threshold) != nil {
		return false
	}
	return votes >= threshold
}

// CanVote checks whether a reviewer may cast a quorum vote.
// Only affirmative participation is modeled.
func CanVote(def *Definition, facts Facts, alreadyVoted bool) (Stage, Readiness) {
	stage, ok := def.QuorumStage()
	if !ok {
		return Stage{}, Readiness{}
	}

	if alreadyVoted {
		return stage, blocked(&BlockedError{Reason: ReasonDuplicateAction, Stage: stage.Number})
	}
	if !def.ActionableStatuses()[facts.Status] {
		return stage, blocked(&BlockedError{Reason: ReasonWrongLifecycleStatus, Status: facts.Status})
	}
	if unmet, ok := firstUnsatisfied(def, facts, stage.Number); ok {
		return stage, blocked(&BlockedError{Reason: ReasonPrerequisiteUnsatisfied, Stage: unmet})
	}

	return stage, Readiness{Ready: true}
}
