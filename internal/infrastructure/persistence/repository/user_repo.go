package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, name, email, role, department, manager_id, is_active`

// Create inserts a user. Users are owned by the directory; this exists for seeding.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (name, email, role, department, manager_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var managerID sql.NullInt64
	if user.ManagerID != nil {
		managerID = sql.NullInt64{Int64: *user.ManagerID, Valid: true}
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.Role,
		user.Department,
		managerID,
		user.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create user",
			zap.String("name", user.Name),
			zap.String("role", user.Role),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListActiveByRole retrieves active users holding role, lowest id first
func (r *UserRepository) ListActiveByRole(ctx context.Context, role, department string, limit int) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = ? AND is_active = 1 AND (? = '' OR department = ?)
		ORDER BY id
		LIMIT ?
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, role, department, department, limit)
	if err != nil {
		r.logger.Error("Failed to list users by role",
			zap.String("role", role),
			zap.String("department", department),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var managerID sql.NullInt64

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Department,
		&managerID,
		&user.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.Int64
	}
	return &user, nil
}
