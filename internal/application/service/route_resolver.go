package service

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/rule"
	"github.com/garyjia/spend-approval/pkg/tracing"
	"github.com/garyjia/spend-approval/pkg/utils"
)

// daysPerLevel is the presentation estimate of one approval level
const daysPerLevel = 1.5

// RouteRequest is the request context routed by RouteResolver
type RouteRequest struct {
	RequesterID     int64   `json:"requester_id"`
	Amount          float64 `json:"amount"`
	Category        string  `json:"category"`
	HasReceipt      bool    `json:"has_receipt"`
	RequisitionType string  `json:"requisition_type"`
}

// RoutingConfig holds the escape hatches of the decision ladder
type RoutingConfig struct {
	// ExpeditedType bypasses every other rule when it equals the requisition type
	ExpeditedType string

	// LegacyThreshold auto-approves unmatched requests at or below it
	LegacyThreshold float64
}

// RouteResolver selects the approval path for a request
type RouteResolver interface {
	Resolve(ctx context.Context, req RouteRequest) (*entity.ApprovalRoute, error)
}

type routeResolverImpl struct {
	policies  PolicyCatalog
	rules     *rule.Set
	approvers ApproverResolver
	users     port.UserRepository
	cfg       RoutingConfig
	logger    Logger
}

// NewRouteResolver creates a new RouteResolver
func NewRouteResolver(
	policies PolicyCatalog,
	rules *rule.Set,
	approvers ApproverResolver,
	users port.UserRepository,
	cfg RoutingConfig,
	logger Logger,
) RouteResolver {
	return &routeResolverImpl{
		policies:  policies,
		rules:     rules,
		approvers: approvers,
		users:     users,
		cfg:       cfg,
		logger:    logger,
	}
}

// Resolve walks the decision ladder: expedited bypass, dynamic policies,
// static rules, then the legacy threshold. The first definitive step wins.
func (r *routeResolverImpl) Resolve(ctx context.Context, req RouteRequest) (route *entity.ApprovalRoute, err error) {
	ctx, span := tracing.StartSpan(ctx, "route.resolve",
		attribute.Int64("requester_id", req.RequesterID),
		attribute.Float64("amount", req.Amount),
		attribute.String("category", req.Category),
	)
	defer func() {
		if route != nil {
			span.SetAttributes(
				attribute.Bool("auto_approve", route.AutoApprove),
				attribute.Int("levels", len(route.Levels)),
				attribute.String("rule_id", route.RuleID),
			)
		}
		tracing.EndSpan(span, err)
	}()

	if err := utils.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := utils.ValidateID("requester_id", req.RequesterID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if r.cfg.ExpeditedType != "" && req.RequisitionType == r.cfg.ExpeditedType {
		return autoApproved(fmt.Sprintf("Expedited request type %s bypasses approval", req.RequisitionType)), nil
	}

	policies, err := r.policies.ActivePolicies(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range policies {
		if p.AmountMax >= req.Amount {
			route := autoApproved(fmt.Sprintf("Auto-approved by policy %q: amount $%.2f is within limit $%.2f",
				p.Policy.Name, req.Amount, p.AmountMax))
			id := p.Policy.ID
			route.PolicyID = &id
			return route, nil
		}
	}

	// The requester is loaded only when department filtering or level construction needs it
	var requester *entity.User
	department := ""
	if r.rules.UsesDepartments() {
		if requester, err = r.loadRequester(ctx, req.RequesterID); err != nil {
			return nil, err
		}
		department = requester.Department
	}

	matched, ok := r.rules.Match(rule.Input{
		Amount:          req.Amount,
		Category:        req.Category,
		Department:      department,
		HasReceipt:      req.HasReceipt,
		RequisitionType: req.RequisitionType,
	})
	if ok {
		if matched.AutoApproves() {
			route := autoApproved(fmt.Sprintf("Auto-approved by rule %q", matched.Name))
			route.RuleID = matched.ID
			return route, nil
		}
		if requester == nil {
			if requester, err = r.loadRequester(ctx, req.RequesterID); err != nil {
				return nil, err
			}
		}
		return r.buildLevels(ctx, matched, requester)
	}

	if req.Amount <= r.cfg.LegacyThreshold {
		return autoApproved(fmt.Sprintf("Auto-approved: amount $%.2f is within Legacy threshold ($%s)",
			req.Amount, strconv.FormatFloat(r.cfg.LegacyThreshold, 'f', -1, 64))), nil
	}

	r.logger.Warn("No approval route matched",
		"requester_id", req.RequesterID,
		"amount", req.Amount,
		"category", req.Category,
		"requisition_type", req.RequisitionType,
	)
	return &entity.ApprovalRoute{
		Levels: []entity.RouteLevel{},
		Reason: fmt.Sprintf("No matching approval path for amount $%.2f in category %q; manual routing required",
			req.Amount, req.Category),
	}, nil
}

func (r *routeResolverImpl) loadRequester(ctx context.Context, id int64) (*entity.User, error) {
	requester, err := r.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load requester %d: %w", id, err)
	}
	if requester == nil {
		return nil, fmt.Errorf("%w: requester %d", ErrNotFound, id)
	}
	return requester, nil
}

// buildLevels resolves every level of the matched rule concurrently
func (r *routeResolverImpl) buildLevels(ctx context.Context, matched *rule.StaticRule, requester *entity.User) (*entity.ApprovalRoute, error) {
	levels := make([]entity.RouteLevel, len(matched.ApproverLevels))

	g, gctx := errgroup.WithContext(ctx)
	for i, tmpl := range matched.ApproverLevels {
		g.Go(func() error {
			approvers, err := r.approvers.Resolve(gctx, tmpl.Role, requester.ManagerID, requester.Department)
			if err != nil {
				return err
			}
			levels[i] = entity.RouteLevel{
				Level:     tmpl.Level,
				Role:      tmpl.Role,
				Approvers: approvers,
				Required:  tmpl.Required,
				Status:    entity.ApprovalStatusPending,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, l := range levels {
		if len(l.Approvers) == 0 {
			r.logger.Warn("Route level has no approvers",
				"rule_id", matched.ID,
				"level", l.Level,
				"role", l.Role,
				"requester_id", requester.ID,
			)
		}
	}

	return &entity.ApprovalRoute{
		Levels:        levels,
		EstimatedDays: float64(len(levels)) * daysPerLevel,
		Reason:        fmt.Sprintf("Matched rule %q: %d approval level(s)", matched.Name, len(levels)),
		RuleID:        matched.ID,
	}, nil
}

func autoApproved(reason string) *entity.ApprovalRoute {
	return &entity.ApprovalRoute{
		Levels:      []entity.RouteLevel{},
		AutoApprove: true,
		Reason:      reason,
	}
}
