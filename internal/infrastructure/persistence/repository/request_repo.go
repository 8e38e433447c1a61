package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// requestTables maps each subject kind to its backing table
var requestTables = map[entity.SubjectKind]string{
	entity.SubjectExpense:     "expenses",
	entity.SubjectRequisition: "requisitions",
	entity.SubjectBudget:      "budget_plans",
}

// RequestRepository implements port.RequestRepository for one request table.
// The three request tables share a column layout.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
	kind   entity.SubjectKind
	table  string
}

// NewRequestRepository creates a repository for kind
func NewRequestRepository(db *sql.DB, logger *zap.Logger, kind entity.SubjectKind) (port.RequestRepository, error) {
	table, ok := requestTables[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported subject kind: %q", kind)
	}
	return &RequestRepository{
		db:     db,
		logger: logger.With(zap.String("table", table)),
		kind:   kind,
		table:  table,
	}, nil
}

// NewRequestRepositories creates one repository per subject kind
func NewRequestRepositories(db *sql.DB, logger *zap.Logger) port.RequestRepositories {
	repos := make(port.RequestRepositories, len(requestTables))
	for _, kind := range entity.SubjectKinds {
		// kinds come from requestTables, so construction cannot fail
		repo, _ := NewRequestRepository(db, logger, kind)
		repos[kind] = repo
	}
	return repos
}

// Kind implements port.RequestRepository
func (r *RequestRepository) Kind() entity.SubjectKind {
	return r.kind
}

// Create inserts a request and assigns its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			requester_id, title, amount, category, requisition_type,
			has_receipt, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.table)

	if req.Status == "" {
		req.Status = entity.RequestStatusDraft
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		req.RequesterID,
		req.Title,
		req.Amount,
		req.Category,
		req.RequisitionType,
		req.HasReceipt,
		string(req.Status),
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create request",
			zap.Int64("requester_id", req.RequesterID),
			zap.Error(err))
		return fmt.Errorf("failed to create %s: %w", r.table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	req.Kind = r.kind
	return nil
}

// GetByID retrieves a request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	query := fmt.Sprintf(`
		SELECT id, requester_id, title, amount, category, requisition_type,
			has_receipt, status, decided_at, created_at, updated_at
		FROM %s
		WHERE id = ?
	`, r.table)

	var req entity.Request
	var status string
	var decidedAt sql.NullTime

	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.RequesterID,
		&req.Title,
		&req.Amount,
		&req.Category,
		&req.RequisitionType,
		&req.HasReceipt,
		&status,
		&decidedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get %s: %w", r.table, err)
	}

	req.Kind = r.kind
	req.Status = entity.RequestStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	return &req, nil
}

// TransitionStatus implements port.RequestRepository as a compare-and-swap on status
func (r *RequestRepository) TransitionStatus(ctx context.Context, id int64, from, to entity.RequestStatus, at time.Time) (bool, error) {
	var (
		query string
		args  []interface{}
	)
	if to.IsTerminal() {
		query = fmt.Sprintf(`UPDATE %s SET status = ?, updated_at = ?, decided_at = ? WHERE id = ? AND status = ?`, r.table)
		args = []interface{}{string(to), at.UTC(), at.UTC(), id, string(from)}
	} else {
		query = fmt.Sprintf(`UPDATE %s SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, r.table)
		args = []interface{}{string(to), at.UTC(), id, string(from)}
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to transition request status",
			zap.Int64("id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update %s status: %w", r.table, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
