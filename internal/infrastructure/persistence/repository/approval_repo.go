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

// subjectColumns maps each subject kind to its foreign key column in approvals
var subjectColumns = map[entity.SubjectKind]string{
	entity.SubjectExpense:     "expense_id",
	entity.SubjectRequisition: "requisition_id",
	entity.SubjectBudget:      "budget_id",
}

func subjectColumn(ref entity.SubjectRef) (string, error) {
	col, ok := subjectColumns[ref.Kind]
	if !ok {
		return "", fmt.Errorf("unsupported subject kind: %q", ref.Kind)
	}
	return col, nil
}

const approvalColumns = `
	id, expense_id, requisition_id, budget_id, approver_id, level,
	status, comments, is_override, created_at, decided_at`

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval record repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts records one by one on the executor carried by ctx.
// Callers wrap it in a transaction so the batch lands atomically.
func (r *ApprovalRepository) CreateBatch(ctx context.Context, records []*entity.ApprovalRecord) error {
	query := `
		INSERT INTO approvals (
			expense_id, requisition_id, budget_id, approver_id, level,
			status, comments, is_override, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := sqlite.Conn(ctx, r.db)
	for _, rec := range records {
		if _, err := rec.Subject(); err != nil {
			return fmt.Errorf("failed to create approval record: %w", err)
		}

		result, err := exec.ExecContext(ctx, query,
			nullInt64(rec.ExpenseID),
			nullInt64(rec.RequisitionID),
			nullInt64(rec.BudgetID),
			rec.ApproverID,
			rec.Level,
			string(rec.Status),
			rec.Comments,
			rec.IsOverride,
			rec.CreatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to create approval record",
				zap.Int64("approver_id", rec.ApproverID),
				zap.Int("level", rec.Level),
				zap.Error(err))
			return fmt.Errorf("failed to create approval record: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		rec.ID = id
	}
	return nil
}

// GetByID retrieves an approval record by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE id = ?`

	rec, err := scanApproval(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval record by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval record: %w", err)
	}
	return rec, nil
}

// ListBySubject retrieves all records of a subject ordered by level
func (r *ApprovalRepository) ListBySubject(ctx context.Context, ref entity.SubjectRef) ([]*entity.ApprovalRecord, error) {
	col, err := subjectColumn(ref)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE ` + col + ` = ? ORDER BY level, id`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, ref.ID)
	if err != nil {
		r.logger.Error("Failed to list approval records by subject",
			zap.String("subject", ref.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	return scanApprovals(rows)
}

// CountBySubject returns per-status counts for a subject
func (r *ApprovalRepository) CountBySubject(ctx context.Context, ref entity.SubjectRef) (map[entity.ApprovalStatus]int, error) {
	col, err := subjectColumn(ref)
	if err != nil {
		return nil, err
	}
	query := `SELECT status, COUNT(*) FROM approvals WHERE ` + col + ` = ? GROUP BY status`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, ref.ID)
	if err != nil {
		r.logger.Error("Failed to count approval records",
			zap.String("subject", ref.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to count approval records: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.ApprovalStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan approval count: %w", err)
		}
		counts[entity.ApprovalStatus(status)] = n
	}
	return counts, rows.Err()
}

// Decide moves a PENDING record to status; false means another writer got there first
func (r *ApprovalRepository) Decide(ctx context.Context, id int64, status entity.ApprovalStatus, comments string, override bool, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE approvals
		SET status = ?, comments = ?, is_override = ?, decided_at = ?
		WHERE id = ? AND status = 'PENDING'
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		string(status),
		comments,
		override,
		decidedAt.UTC(),
		id,
	)
	if err != nil {
		r.logger.Error("Failed to decide approval record",
			zap.Int64("id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return false, fmt.Errorf("failed to decide approval record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// SkipPending marks the subject's remaining PENDING records as SKIPPED. decided_at stays null.
func (r *ApprovalRepository) SkipPending(ctx context.Context, ref entity.SubjectRef, exceptID int64) (int64, error) {
	col, err := subjectColumn(ref)
	if err != nil {
		return 0, err
	}
	query := `UPDATE approvals SET status = 'SKIPPED' WHERE ` + col + ` = ? AND status = 'PENDING' AND id <> ?`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, ref.ID, exceptID)
	if err != nil {
		r.logger.Error("Failed to skip pending approval records",
			zap.String("subject", ref.String()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to skip pending approval records: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ListByApprover retrieves the approver's records created at or after since
func (r *ApprovalRepository) ListByApprover(ctx context.Context, approverID int64, since time.Time) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM approvals
		WHERE approver_id = ? AND created_at >= ?
		ORDER BY created_at, id
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, approverID, since.UTC())
	if err != nil {
		r.logger.Error("Failed to list approval records by approver",
			zap.Int64("approver_id", approverID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	return scanApprovals(rows)
}

func scanApproval(row rowScanner) (*entity.ApprovalRecord, error) {
	var rec entity.ApprovalRecord
	var expenseID, requisitionID, budgetID sql.NullInt64
	var status string
	var decidedAt sql.NullTime

	err := row.Scan(
		&rec.ID,
		&expenseID,
		&requisitionID,
		&budgetID,
		&rec.ApproverID,
		&rec.Level,
		&status,
		&rec.Comments,
		&rec.IsOverride,
		&rec.CreatedAt,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = entity.ApprovalStatus(status)
	rec.ExpenseID = int64Ptr(expenseID)
	rec.RequisitionID = int64Ptr(requisitionID)
	rec.BudgetID = int64Ptr(budgetID)
	if decidedAt.Valid {
		t := decidedAt.Time
		rec.DecidedAt = &t
	}
	return &rec, nil
}

func scanApprovals(rows *sql.Rows) ([]*entity.ApprovalRecord, error) {
	var records []*entity.ApprovalRecord
	for rows.Next() {
		rec, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
