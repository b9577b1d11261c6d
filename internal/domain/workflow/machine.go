package workflow

import "context"

// StateMachine tracks one voucher's status against a TransitionTable
type StateMachine interface {
	State() State

	// CanFire reports whether trigger leads anywhere from the current state
	CanFire(trigger Trigger) bool

	// Fire moves to the trigger's target state. It fails without moving when
	// the trigger is not permitted or ctx is already done.
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers lists the triggers allowed from the current state, sorted
	PermittedTriggers() []Trigger
}
