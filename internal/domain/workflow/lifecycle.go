package workflow

import (
	"fmt"

	"github.com/garyjia/spend-approval/internal/domain/entity"
)

// Lifecycle is the request status machine shared by the ledger and the decision processor.
//
//	DRAFT --SUBMIT--> PENDING_APPROVAL --APPROVE--> APPROVED
//	  |                      |
//	  +--AUTO_APPROVE--> APPROVED          +--REJECT--> REJECTED
type Lifecycle struct {
	builder *Builder
}

// NewLifecycle configures the request lifecycle
func NewLifecycle() *Lifecycle {
	b := NewBuilder()
	b.Configure(StateDraft).
		Permit(TriggerSubmit, StatePendingApproval).
		Permit(TriggerAutoApprove, StateApproved)
	b.Configure(StatePendingApproval).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved)
	b.Configure(StateRejected)
	return &Lifecycle{builder: b}
}

// Machine builds a machine positioned at the given persisted status
func (l *Lifecycle) Machine(status entity.RequestStatus) (StateMachine, error) {
	s := FromStatus(status)
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, status)
	}
	return l.builder.Build(s), nil
}

// Transition returns the status reached by firing trigger from status
func (l *Lifecycle) Transition(status entity.RequestStatus, trigger Trigger) (entity.RequestStatus, error) {
	m, err := l.Machine(status)
	if err != nil {
		return status, err
	}
	next, err := m.Next(trigger)
	if err != nil {
		return status, err
	}
	return next.Status(), nil
}
