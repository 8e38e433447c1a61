package entity

import (
	"errors"
	"time"
)

// ErrAmbiguousSubject is returned when an approval record does not reference exactly one request
var ErrAmbiguousSubject = errors.New("approval record must reference exactly one subject")

// ApprovalRecord is one approver's stance on one request.
// Records are never deleted, only transitioned.
type ApprovalRecord struct {
	ID int64 `json:"id"`

	// Exactly one of these is set
	ExpenseID     *int64 `json:"expense_id,omitempty"`
	RequisitionID *int64 `json:"requisition_id,omitempty"`
	BudgetID      *int64 `json:"budget_id,omitempty"`

	ApproverID int64          `json:"approver_id"`
	Level      int            `json:"level"`
	Status     ApprovalStatus `json:"status"`
	Comments   string         `json:"comments,omitempty"`
	IsOverride bool           `json:"is_override"`

	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// NewApprovalRecord creates a pending record for the given subject
func NewApprovalRecord(ref SubjectRef, approverID int64, level int, now time.Time) *ApprovalRecord {
	rec := &ApprovalRecord{
		ApproverID: approverID,
		Level:      level,
		Status:     ApprovalStatusPending,
		CreatedAt:  now,
	}
	rec.SetSubject(ref)
	return rec
}

// SetSubject points the record at ref, clearing the other subject columns
func (a *ApprovalRecord) SetSubject(ref SubjectRef) {
	a.ExpenseID, a.RequisitionID, a.BudgetID = nil, nil, nil
	id := ref.ID
	switch ref.Kind {
	case SubjectExpense:
		a.ExpenseID = &id
	case SubjectRequisition:
		a.RequisitionID = &id
	case SubjectBudget:
		a.BudgetID = &id
	}
}

// Subject resolves the owning request. It fails when zero or several subject columns are set.
func (a *ApprovalRecord) Subject() (SubjectRef, error) {
	var refs []SubjectRef
	if a.ExpenseID != nil {
		refs = append(refs, SubjectRef{Kind: SubjectExpense, ID: *a.ExpenseID})
	}
	if a.RequisitionID != nil {
		refs = append(refs, SubjectRef{Kind: SubjectRequisition, ID: *a.RequisitionID})
	}
	if a.BudgetID != nil {
		refs = append(refs, SubjectRef{Kind: SubjectBudget, ID: *a.BudgetID})
	}
	if len(refs) != 1 {
		return SubjectRef{}, ErrAmbiguousSubject
	}
	return refs[0], nil
}

// IsDecided reports whether the record has left PENDING
func (a *ApprovalRecord) IsDecided() bool {
	return a.Status != ApprovalStatusPending
}

// ResponseTime is the time between creation and decision, false while undecided
func (a *ApprovalRecord) ResponseTime() (time.Duration, bool) {
	if a.DecidedAt == nil {
		return 0, false
	}
	return a.DecidedAt.Sub(a.CreatedAt), true
}
