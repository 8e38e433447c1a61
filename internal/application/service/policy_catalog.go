package service

import (
	"context"
	"fmt"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
)

// ActivePolicy is an auto-approval policy whose rules parsed cleanly
type ActivePolicy struct {
	Policy    *entity.Policy
	AmountMax float64
}

// PolicyCatalog reads the dynamic auto-approval policies
type PolicyCatalog interface {
	// ActivePolicies returns usable policies in evaluation order.
	// Malformed policies are logged and left out.
	ActivePolicies(ctx context.Context) ([]ActivePolicy, error)
}

type policyCatalogImpl struct {
	repo   port.PolicyRepository
	logger Logger
}

// NewPolicyCatalog creates a new PolicyCatalog. Policies are re-read on every call.
func NewPolicyCatalog(repo port.PolicyRepository, logger Logger) PolicyCatalog {
	return &policyCatalogImpl{
		repo:   repo,
		logger: logger,
	}
}

func (c *policyCatalogImpl) ActivePolicies(ctx context.Context) ([]ActivePolicy, error) {
	policies, err := c.repo.ListActive(ctx, entity.PolicyTypeAutoApproval)
	if err != nil {
		c.logger.Error("Failed to load active policies", "error", err)
		return nil, fmt.Errorf("load active policies: %w", err)
	}

	active := make([]ActivePolicy, 0, len(policies))
	for _, p := range policies {
		rules, err := p.ParseAutoApprovalRules()
		if err != nil {
			cfgErr := &ConfigurationError{PolicyID: p.ID, PolicyName: p.Name, Err: err}
			c.logger.Warn("Skipping malformed policy", "policy_id", p.ID, "policy_name", p.Name, "error", cfgErr)
			continue
		}
		active = append(active, ActivePolicy{Policy: p, AmountMax: *rules.AmountMax})
	}
	return active, nil
}
