package workflow

import (
	"context"
	"fmt"
)

// Outcome is the effect of an applied stage decision
type Outcome struct {
	Stage          Stage
	Decision       Decision
	PreviousStatus State
	NewStatus      State
}

// Released reports whether the decision completed the workflow
func (o Outcome) Released() bool {
	return o.NewStatus == StateReleased
}

// Apply re-validates and computes the effect of a decision at targetStage.
// A rejection at any stage ends the workflow. Approval of the final stage
// releases the voucher; other approvals keep the status unless the stage
// configures an intermediate status.
func Apply(ctx context.Context, def *Definition, facts Facts, targetStage int, decision Decision) (Outcome, error) {
	if !decision.IsValid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	stage, ok := def.Stage(targetStage)
	if !ok {
		return Outcome{}, ErrUnauthorized
	}
	if stage.Quorum {
		return Outcome{}, ErrQuorumVoteRequired
	}

	if err := CanAct(def, facts, targetStage).Err(); err != nil {
		return Outcome{}, err
	}

	next := facts.Status
	switch {
	case decision == DecisionRejected:
		next = StateRejected
	case targetStage == def.FinalStage():
		next = StateReleased
	case stage.OnApproveStatus != "":
		next = stage.OnApproveStatus
	}

	if err := Transition(ctx, facts.Status, next); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Stage:          stage,
		Decision:       decision,
		PreviousStatus: facts.Status,
		NewStatus:      next,
	}, nil
}

// CanCancel checks whether a voucher in status may be cancelled.
// Cancellation has no prerequisites beyond a non-terminal status.
func CanCancel(ctx context.Context, status State) error {
	if status.IsTerminal() {
		return &BlockedError{Reason: ReasonWrongLifecycleStatus, Status: status}
	}
	return Transition(ctx, status, StateCancelled)
}

// CanSubmit checks whether a voucher in status may be submitted
func CanSubmit(ctx context.Context, status State) error {
	if status != StateDraft {
		return &BlockedError{Reason: ReasonWrongLifecycleStatus, Status: status}
	}
	return Transition(ctx, status, StatePending)
}
