package entity

// SubjectKind identifies which kind of request an approval belongs to
type SubjectKind string

const (
	SubjectExpense     SubjectKind = "EXPENSE"
	SubjectRequisition SubjectKind = "REQUISITION"
	SubjectBudget      SubjectKind = "BUDGET"
)

// SubjectKinds lists every kind the engine routes, in a stable order
var SubjectKinds = []SubjectKind{SubjectExpense, SubjectRequisition, SubjectBudget}

// IsValid reports whether k is one of the routed subject kinds
func (k SubjectKind) IsValid() bool {
	switch k {
	case SubjectExpense, SubjectRequisition, SubjectBudget:
		return true
	default:
		return false
	}
}

// String returns the string representation of the kind
func (k SubjectKind) String() string {
	return string(k)
}

// RequestStatus is the lifecycle status of a request
type RequestStatus string

const (
	RequestStatusDraft           RequestStatus = "DRAFT"
	RequestStatusPendingApproval RequestStatus = "PENDING_APPROVAL"
	RequestStatusApproved        RequestStatus = "APPROVED"
	RequestStatusRejected        RequestStatus = "REJECTED"
)

// IsTerminal returns true once no further decisions can change the request
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ApprovalStatus is the status of a single approval record
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
	ApprovalStatusSkipped  ApprovalStatus = "SKIPPED"
)

// Role tags used by the built-in routing rules
const (
	RoleManager        = "MANAGER"
	RoleFinanceTeam    = "FINANCE_TEAM"
	RoleFinanceManager = "FINANCE_MANAGER"
	RoleDirector       = "DIRECTOR"
	RoleCFO            = "CFO"
)

// Policy type constants
const (
	PolicyTypeAutoApproval = "AUTO_APPROVAL"
)
