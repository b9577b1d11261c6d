package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StatePending, false},
		{StateValidated, false},
		{StateApproved, false},
		{StateReleased, true},
		{StateRejected, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"draft", StateDraft, true},
		{"released", StateReleased, true},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	NewBuilder().Configure(State("INVALID"))
}

func TestTable_MachinePanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Machine() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build().Machine(State("INVALID"))
}

func TestBuilder_PermitConflictingTargetPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic when a trigger gets a second target")
		}
	}()

	NewBuilder().Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerApprove, StateValidated)
}

func TestBuilder_BuildIsFrozen(t *testing.T) {
	builder := NewBuilder()
	cfg := builder.Configure(StateDraft)
	cfg.Permit(TriggerSubmit, StatePending)

	table := builder.Build()
	cfg.Permit(TriggerCancel, StateCancelled)

	if _, ok := table.Target(StateDraft, TriggerCancel); ok {
		t.Error("table changed after Build()")
	}
	if to, ok := table.Target(StateDraft, TriggerSubmit); !ok || to != StatePending {
		t.Errorf("Target(DRAFT, SUBMIT) = %v, %v", to, ok)
	}
}

func TestStateMachine_FireRejectsUnpermittedTrigger(t *testing.T) {
	machine := LifecycleMachine(StateDraft)

	err := machine.Fire(context.Background(), TriggerRelease)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateMachine_FireHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	machine := LifecycleMachine(StateDraft)
	if err := machine.Fire(ctx, TriggerSubmit); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fire() error = %v, want %v", err, context.Canceled)
	}
	if machine.State() != StateDraft {
		t.Errorf("State = %v, want %v", machine.State(), StateDraft)
	}
}

func TestStateMachine_Independent(t *testing.T) {
	machine1 := LifecycleMachine(StateDraft)
	machine2 := LifecycleMachine(StateDraft)

	if err := machine1.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}

	if machine2.State() != StateDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateDraft)
	}
	if machine1.State() != StatePending {
		t.Errorf("machine1 state = %v, want %v", machine1.State(), StatePending)
	}
}

func TestLifecycleMachine_PermittedTriggers(t *testing.T) {
	for _, s := range []State{StateReleased, StateRejected, StateCancelled} {
		t.Run(string(s), func(t *testing.T) {
			if triggers := LifecycleMachine(s).PermittedTriggers(); len(triggers) != 0 {
				t.Errorf("terminal state %s has %d permitted triggers", s, len(triggers))
			}
		})
	}

	got := LifecycleMachine(StateDraft).PermittedTriggers()
	want := []Trigger{TriggerCancel, TriggerSubmit}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("PermittedTriggers(DRAFT) = %v, want %v", got, want)
	}
	if !LifecycleMachine(StateApproved).CanFire(TriggerRelease) {
		t.Error("APPROVED should permit RELEASE")
	}
}

func TestLifecycleMachine_HappyPath(t *testing.T) {
	machine := LifecycleMachine(StateDraft)

	steps := []struct {
		trigger       Trigger
		expectedState State
	}{
		{TriggerSubmit, StatePending},
		{TriggerValidate, StateValidated},
		{TriggerApprove, StateApproved},
		{TriggerRelease, StateReleased},
	}

	for i, step := range steps {
		if err := machine.Fire(context.Background(), step.trigger); err != nil {
			t.Errorf("Step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}
		if machine.State() != step.expectedState {
			t.Errorf("Step %d: State after Fire(%v) = %v, want %v", i, step.trigger, machine.State(), step.expectedState)
		}
	}
}

func TestTransition(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr error
	}{
		{"stay pending", StatePending, StatePending, nil},
		{"submit", StateDraft, StatePending, nil},
		{"release from pending", StatePending, StateReleased, nil},
		{"cancel draft", StateDraft, StateCancelled, nil},
		{"reject validated", StateValidated, StateRejected, nil},
		{"backward approved to validated", StateApproved, StateValidated, ErrInvalidTransition},
		{"backward pending to draft", StatePending, StateDraft, ErrInvalidTransition},
		{"draft cannot release", StateDraft, StateReleased, ErrInvalidTransition},
		{"released is final", StateReleased, StateCancelled, ErrInvalidTransition},
		{"released cannot stay", StateReleased, StateReleased, ErrInvalidTransition},
		{"unknown source", State("BOGUS"), StatePending, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transition(ctx, tt.from, tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Transition(%s, %s) = %v, want nil", tt.from, tt.to, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transition(%s, %s) = %v, want %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}
