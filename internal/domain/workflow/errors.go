package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a status transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a status is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when the actor has no seat in the voucher's variant
	ErrUnauthorized = errors.New("actor has no approval authority on this voucher")

	// ErrDuplicateAction is returned when a stage already has a decision,
	// or a reviewer already voted for the voucher
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrPrerequisiteUnsatisfied is returned when an earlier stage is not complete
	ErrPrerequisiteUnsatisfied = errors.New("prerequisite stage unsatisfied")

	// ErrWrongLifecycleStatus is returned when the voucher status does not permit the action
	ErrWrongLifecycleStatus = errors.New("wrong lifecycle status")

	// ErrConfiguration is returned for invalid workflow or quorum configuration
	ErrConfiguration = errors.New("configuration error")

	// ErrQuorumVoteRequired is returned when a quorum stage is acted on as a single approval
	ErrQuorumVoteRequired = errors.New("quorum stage is satisfied by votes, not by a single decision")

	// ErrTransient wraps storage failures during a commit; the caller may retry
	ErrTransient = errors.New("transient failure")

	// ErrVoucherNotFound is returned when no voucher exists for the identifier
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrInvalidDecision is returned for a decision other than APPROVED or REJECTED
	ErrInvalidDecision = errors.New("invalid decision")
)

// BlockReason identifies why an action cannot proceed
type BlockReason string

const (
	ReasonNone                    BlockReason = ""
	ReasonDuplicateAction         BlockReason = "DUPLICATE_ACTION"
	ReasonPrerequisiteUnsatisfied BlockReason = "PREREQUISITE_UNSATISFIED"
	ReasonWrongLifecycleStatus    BlockReason = "WRONG_LIFECYCLE_STATUS"
)

// BlockedError describes a failed readiness check
type BlockedError struct {
	Reason BlockReason
	// Stage is the first unsatisfied stage for PREREQUISITE_UNSATISFIED,
	// or the target stage for DUPLICATE_ACTION
	Stage int
	// Status is the voucher status for WRONG_LIFECYCLE_STATUS
	Status State
}

func (e *BlockedError) Error() string {
	switch e.Reason {
	case ReasonDuplicateAction:
		return fmt.Sprintf("%s: stage %d already decided", ErrDuplicateAction, e.Stage)
	case ReasonPrerequisiteUnsatisfied:
		return fmt.Sprintf("%s: waiting on stage %d", ErrPrerequisiteUnsatisfied, e.Stage)
	case ReasonWrongLifecycleStatus:
		return fmt.Sprintf("%s: voucher is %s", ErrWrongLifecycleStatus, e.Status)
	default:
		return "blocked"
	}
}

// Unwrap lets errors.Is match the taxonomy sentinels
func (e *BlockedError) Unwrap() error {
	switch e.Reason {
	case ReasonDuplicateAction:
		return ErrDuplicateAction
	case ReasonPrerequisiteUnsatisfied:
		return ErrPrerequisiteUnsatisfied
	case ReasonWrongLifecycleStatus:
		return ErrWrongLifecycleStatus
	default:
		return nil
	}
}

var taxonomy = []error{
	ErrUnauthorized,
	ErrDuplicateAction,
	ErrPrerequisiteUnsatisfied,
	ErrWrongLifecycleStatus,
	ErrConfiguration,
	ErrQuorumVoteRequired,
	ErrVoucherNotFound,
	ErrInvalidDecision,
	ErrTransient,
}

// Classify passes errors from the taxonomy through unchanged and wraps
// anything else, such as a storage failure, in ErrTransient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range taxonomy {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
