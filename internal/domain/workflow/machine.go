package workflow

import "fmt"

// StateMachine tracks the current state of one request and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// Next returns the state the trigger would move to without changing the machine
	Next(trigger Trigger) (State, error)

	// Fire moves the machine to the state reached by trigger
	Fire(trigger Trigger) error
}

type stateMachine struct {
	current State
	table   transitionTable
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) Next(trigger Trigger) (State, error) {
	to, ok := m.table[m.current][trigger]
	if !ok {
		return m.current, fmt.Errorf("%w: %s does not accept %s", ErrInvalidTransition, m.current, trigger)
	}
	return to, nil
}

func (m *stateMachine) Fire(trigger Trigger) error {
	to, err := m.Next(trigger)
	if err != nil {
		return err
	}
	m.current = to
	return nil
}
