package service

import (
	"context"
	"fmt"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
)

// ApproverResolverConfig bounds role-based approver lookups
type ApproverResolverConfig struct {
	MaxApproversPerLevel  int
	DepartmentScopedRoles []string
}

// ApproverResolver turns a role tag into concrete approvers for one level
type ApproverResolver interface {
	// Resolve returns the approvers for role. An empty result is not an error.
	Resolve(ctx context.Context, role string, managerID *int64, department string) ([]entity.ApproverRef, error)
}

type approverResolverImpl struct {
	users       port.UserRepository
	maxPerLevel int
	scoped      map[string]bool
	logger      Logger
}

// NewApproverResolver creates a new ApproverResolver
func NewApproverResolver(users port.UserRepository, cfg ApproverResolverConfig, logger Logger) ApproverResolver {
	if cfg.MaxApproversPerLevel <= 0 {
		cfg.MaxApproversPerLevel = 3
	}
	scoped := make(map[string]bool, len(cfg.DepartmentScopedRoles))
	for _, r := range cfg.DepartmentScopedRoles {
		scoped[r] = true
	}
	return &approverResolverImpl{
		users:       users,
		maxPerLevel: cfg.MaxApproversPerLevel,
		scoped:      scoped,
		logger:      logger,
	}
}

func (r *approverResolverImpl) Resolve(ctx context.Context, role string, managerID *int64, department string) ([]entity.ApproverRef, error) {
	if role == entity.RoleManager {
		return r.resolveManager(ctx, managerID)
	}

	filter := ""
	if r.scoped[role] {
		filter = department
	}

	users, err := r.users.ListActiveByRole(ctx, role, filter, r.maxPerLevel)
	if err != nil {
		r.logger.Error("Failed to resolve approvers by role", "role", role, "department", filter, "error", err)
		return nil, fmt.Errorf("resolve approvers for role %s: %w", role, err)
	}

	approvers := make([]entity.ApproverRef, 0, len(users))
	for _, u := range users {
		approvers = append(approvers, toApproverRef(u))
	}
	return approvers, nil
}

func (r *approverResolverImpl) resolveManager(ctx context.Context, managerID *int64) ([]entity.ApproverRef, error) {
	if managerID == nil {
		return []entity.ApproverRef{}, nil
	}

	manager, err := r.users.GetByID(ctx, *managerID)
	if err != nil {
		r.logger.Error("Failed to resolve manager", "manager_id", *managerID, "error", err)
		return nil, fmt.Errorf("resolve manager %d: %w", *managerID, err)
	}
	if manager == nil || !manager.IsActive {
		return []entity.ApproverRef{}, nil
	}
	return []entity.ApproverRef{toApproverRef(manager)}, nil
}

func toApproverRef(u *entity.User) entity.ApproverRef {
	return entity.ApproverRef{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
