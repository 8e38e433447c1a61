package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// PolicyRepository implements port.PolicyRepository
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) port.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a policy
func (r *PolicyRepository) Create(ctx context.Context, policy *entity.Policy) error {
	query := `
		INSERT INTO policies (name, type, is_active, rules_json, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		policy.Name,
		policy.Type,
		policy.IsActive,
		policy.RulesJSON,
		policy.Priority,
		policy.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create policy",
			zap.String("name", policy.Name),
			zap.Error(err))
		return fmt.Errorf("failed to create policy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	policy.ID = id
	return nil
}

// ListActive retrieves active policies of policyType in evaluation order
func (r *PolicyRepository) ListActive(ctx context.Context, policyType string) ([]*entity.Policy, error) {
	query := `
		SELECT id, name, type, is_active, rules_json, priority, created_at
		FROM policies
		WHERE type = ? AND is_active = 1
		ORDER BY priority ASC, created_at ASC, id ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, policyType)
	if err != nil {
		r.logger.Error("Failed to list active policies",
			zap.String("type", policyType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	defer rows.Close()

	var policies []*entity.Policy
	for rows.Next() {
		var p entity.Policy
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Type,
			&p.IsActive,
			&p.RulesJSON,
			&p.Priority,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, &p)
	}
	return policies, rows.Err()
}
