package port

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/spend-approval/internal/domain/entity"
)

// RequestRepository defines persistence operations for one kind of request.
// Lookups return (nil, nil) when the row does not exist.
type RequestRepository interface {
	// Kind reports which subject kind this repository stores
	Kind() entity.SubjectKind

	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id int64) (*entity.Request, error)

	// TransitionStatus moves the request from one status to another only if it
	// is still in the expected status. It reports whether a row changed.
	// decided_at is stamped when the target status is terminal.
	TransitionStatus(ctx context.Context, id int64, from, to entity.RequestStatus, at time.Time) (bool, error)
}

// RequestRepositories maps each subject kind to its repository
type RequestRepositories map[entity.SubjectKind]RequestRepository

// For returns the repository for kind
func (r RequestRepositories) For(kind entity.SubjectKind) (RequestRepository, error) {
	repo, ok := r[kind]
	if !ok || repo == nil {
		return nil, fmt.Errorf("no request repository registered for kind %q", kind)
	}
	return repo, nil
}

// ApprovalRepository defines persistence operations for ApprovalRecord
type ApprovalRepository interface {
	// CreateBatch inserts all records and assigns their IDs
	CreateBatch(ctx context.Context, records []*entity.ApprovalRecord) error

	GetByID(ctx context.Context, id int64) (*entity.ApprovalRecord, error)

	// ListBySubject returns every record of a subject ordered by level, then id
	ListBySubject(ctx context.Context, ref entity.SubjectRef) ([]*entity.ApprovalRecord, error)

	// CountBySubject returns per-status record counts of a subject
	CountBySubject(ctx context.Context, ref entity.SubjectRef) (map[entity.ApprovalStatus]int, error)

	// Decide moves a PENDING record to status. It reports false when the
	// record was no longer PENDING.
	Decide(ctx context.Context, id int64, status entity.ApprovalStatus, comments string, override bool, decidedAt time.Time) (bool, error)

	// SkipPending marks every other PENDING record of the subject as SKIPPED
	SkipPending(ctx context.Context, ref entity.SubjectRef, exceptID int64) (int64, error)

	// ListByApprover returns the approver's records created at or after since
	ListByApprover(ctx context.Context, approverID int64, since time.Time) ([]*entity.ApprovalRecord, error)
}

// PolicyRepository defines read access to dynamic routing policies
type PolicyRepository interface {
	Create(ctx context.Context, policy *entity.Policy) error

	// ListActive returns active policies of a type ordered by priority, created_at, id
	ListActive(ctx context.Context, policyType string) ([]*entity.Policy, error)
}

// UserRepository defines read access to requesters and approvers
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// ListActiveByRole returns up to limit active users with role ordered by id.
	// An empty department matches every department.
	ListActiveByRole(ctx context.Context, role, department string, limit int) ([]*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
