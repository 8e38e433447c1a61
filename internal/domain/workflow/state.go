package workflow

import "github.com/garyjia/spend-approval/internal/domain/entity"

// State is a request lifecycle state
type State string

const (
	StateDraft           State = State(entity.RequestStatusDraft)
	StatePendingApproval State = State(entity.RequestStatusPendingApproval)
	StateApproved        State = State(entity.RequestStatusApproved)
	StateRejected        State = State(entity.RequestStatusRejected)
)

var validStates = map[State]bool{
	StateDraft:           true,
	StatePendingApproval: true,
	StateApproved:        true,
	StateRejected:        true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// FromStatus converts a persisted request status
func FromStatus(s entity.RequestStatus) State {
	return State(s)
}

// Status converts the state back to a persisted request status
func (s State) Status() entity.RequestStatus {
	return entity.RequestStatus(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
