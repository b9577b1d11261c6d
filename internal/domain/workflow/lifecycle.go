package workflow

import (
	"context"
	"fmt"
)

// lifecycle is the voucher status graph. Status only moves forward along
// DRAFT, PENDING, VALIDATED, APPROVED, RELEASED, or sideways into REJECTED
// or CANCELLED from any non-terminal state.
var lifecycle = buildLifecycle()

func buildLifecycle() *TransitionTable {
	builder := NewBuilder()

	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending).
		Permit(TriggerCancel, StateCancelled)

	builder.Configure(StatePending).
		Permit(TriggerValidate, StateValidated).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerRelease, StateReleased).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerCancel, StateCancelled)

	builder.Configure(StateValidated).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerRelease, StateReleased).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerCancel, StateCancelled)

	builder.Configure(StateApproved).
		Permit(TriggerRelease, StateReleased).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerCancel, StateCancelled)

	// RELEASED, REJECTED and CANCELLED are terminal

	return builder.Build()
}

// LifecycleMachine starts a voucher lifecycle machine at initial
func LifecycleMachine(initial State) StateMachine {
	return lifecycle.Machine(initial)
}

// Transition validates that a voucher may move from one status to another.
// Staying in the same non-terminal status is always allowed.
func Transition(ctx context.Context, from, to State) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidState, from)
	}
	if from == to && !from.IsTerminal() {
		return nil
	}

	trigger, ok := triggerFor(to)
	if !ok {
		return fmt.Errorf("%w: no trigger leads to %s", ErrInvalidTransition, to)
	}
	return LifecycleMachine(from).Fire(ctx, trigger)
}
