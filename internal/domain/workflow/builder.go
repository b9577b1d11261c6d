package workflow

import (
	"context"
	"fmt"
	"sort"
)

// TableBuilder collects permitted transitions before freezing them into a
// TransitionTable. It is not safe for concurrent use.
type TableBuilder struct {
	edges map[State]map[Trigger]State
}

// StateConfiguration adds transitions leaving one state
type StateConfiguration struct {
	from  State
	edges map[Trigger]State
}

// NewBuilder creates an empty TableBuilder
func NewBuilder() *TableBuilder {
	return &TableBuilder{edges: make(map[State]map[Trigger]State)}
}

// Configure returns the configuration for transitions leaving state.
// It panics on an unknown state since tables are built from constants.
func (b *TableBuilder) Configure(state State) *StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	edges, ok := b.edges[state]
	if !ok {
		edges = make(map[Trigger]State)
		b.edges[state] = edges
	}
	return &StateConfiguration{from: state, edges: edges}
}

// Permit lets trigger move the state to toState. A trigger has at most one
// target per source state.
func (c *StateConfiguration) Permit(trigger Trigger, toState State) *StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if prev, dup := c.edges[trigger]; dup && prev != toState {
		panic(fmt.Sprintf("trigger %s from %s already leads to %s", trigger, c.from, prev))
	}
	c.edges[trigger] = toState
	return c
}

// Build freezes the collected transitions. Later changes to the builder do
// not affect the returned table.
func (b *TableBuilder) Build() *TransitionTable {
	edges := make(map[State]map[Trigger]State, len(b.edges))
	for from, out := range b.edges {
		cp := make(map[Trigger]State, len(out))
		for trigger, to := range out {
			cp[trigger] = to
		}
		edges[from] = cp
	}
	return &TransitionTable{edges: edges}
}

// TransitionTable is an immutable set of permitted transitions, safe to share
type TransitionTable struct {
	edges map[State]map[Trigger]State
}

// Target returns where trigger leads from state
func (t *TransitionTable) Target(from State, trigger Trigger) (State, bool) {
	to, ok := t.edges[from][trigger]
	return to, ok
}

// Machine starts a state machine over the table at initial
func (t *TransitionTable) Machine(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	return &stateMachine{table: t, current: initial}
}

type stateMachine struct {
	table   *TransitionTable
	current State
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := m.table.Target(m.current, trigger)
	return ok
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, ok := m.table.Target(m.current, trigger)
	if !ok {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	out := m.table.edges[m.current]
	triggers := make([]Trigger, 0, len(out))
	for trigger := range out {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
