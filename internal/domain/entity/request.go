package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SubjectRef points at exactly one request of a given kind
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   int64       `json:"id"`
}

// String renders the reference as KIND:id
func (r SubjectRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// ParseSubjectKind accepts the kind in any case plus the "budget_plan" alias used in URLs
func ParseSubjectKind(s string) (SubjectKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EXPENSE", "EXPENSES":
		return SubjectExpense, nil
	case "REQUISITION", "REQUISITIONS":
		return SubjectRequisition, nil
	case "BUDGET", "BUDGETS", "BUDGET_PLAN", "BUDGET_PLANS":
		return SubjectBudget, nil
	}
	return "", fmt.Errorf("unknown subject kind: %q", s)
}

// ParseSubjectRef builds a reference from URL-style kind and id strings
func ParseSubjectRef(kind, id string) (SubjectRef, error) {
	k, err := ParseSubjectKind(kind)
	if err != nil {
		return SubjectRef{}, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return SubjectRef{}, fmt.Errorf("invalid subject id: %q", id)
	}
	return SubjectRef{Kind: k, ID: n}, nil
}

// Request is an expense claim, purchase requisition or budget plan awaiting authorization.
// Status is owned by the approval engine once routing begins.
type Request struct {
	ID              int64         `json:"id"`
	Kind            SubjectKind   `json:"kind"`
	RequesterID     int64         `json:"requester_id"`
	Title           string        `json:"title"`
	Amount          float64       `json:"amount"`
	Category        string        `json:"category"`
	RequisitionType string        `json:"requisition_type,omitempty"`
	HasReceipt      bool          `json:"has_receipt"`
	Status          RequestStatus `json:"status"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Ref returns the subject reference of the request
func (r *Request) Ref() SubjectRef {
	return SubjectRef{Kind: r.Kind, ID: r.ID}
}
