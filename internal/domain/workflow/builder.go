package workflow

import "fmt"

// transitionTable maps a state and trigger to the state it leads to
type transitionTable map[State]map[Trigger]State

// Builder collects the allowed transitions of a lifecycle
type Builder struct {
	table transitionTable
}

// StateConfiguration adds transitions leaving one state
type StateConfiguration struct {
	from  State
	table transitionTable
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{table: make(transitionTable)}
}

// Configure returns the configuration of state. Unknown states panic.
func (b *Builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(map[Trigger]State)
	}
	return StateConfiguration{from: state, table: b.table}
}

// Permit lets trigger move the configured state to target.
// A second Permit for the same trigger replaces the first.
func (c StateConfiguration) Permit(trigger Trigger, target State) StateConfiguration {
	if !target.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", target))
	}
	c.table[c.from][trigger] = target
	return c
}

// Build returns a machine positioned at initial. The machine keeps its own copy
// of the table, so later Configure calls do not reach it.
func (b *Builder) Build(initial State) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	table := make(transitionTable, len(b.table))
	for from, edges := range b.table {
		copied := make(map[Trigger]State, len(edges))
		for trigger, to := range edges {
			copied[trigger] = to
		}
		table[from] = copied
	}
	return &stateMachine{current: initial, table: table}
}
