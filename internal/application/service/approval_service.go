package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/event"
	"github.com/garyjia/spend-approval/internal/domain/workflow"
)

// SubmitResult is the outcome of routing a draft request
type SubmitResult struct {
	Request   *entity.Request          `json:"request"`
	Route     *entity.ApprovalRoute    `json:"route"`
	Approvals []*entity.ApprovalRecord `json:"approvals"`
}

// ApprovalService is the entry point used by transports. It composes routing,
// materialization and decisions, and publishes events once state is committed.
type ApprovalService interface {
	Submit(ctx context.Context, ref entity.SubjectRef) (*SubmitResult, error)
	Decide(ctx context.Context, d Decision) (*DecisionOutcome, error)
	GetRequest(ctx context.Context, ref entity.SubjectRef) (*entity.Request, error)
	ListApprovals(ctx context.Context, ref entity.SubjectRef) ([]*entity.ApprovalRecord, error)
}

type approvalServiceImpl struct {
	requests  port.RequestRepositories
	approvals port.ApprovalRepository
	resolver  RouteResolver
	ledger    ApprovalLedger
	processor DecisionProcessor
	publisher port.EventPublisher
	logger    Logger
}

// NewApprovalService creates a new ApprovalService. publisher may be nil.
func NewApprovalService(
	requests port.RequestRepositories,
	approvals port.ApprovalRepository,
	resolver RouteResolver,
	ledger ApprovalLedger,
	processor DecisionProcessor,
	publisher port.EventPublisher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		requests:  requests,
		approvals: approvals,
		resolver:  resolver,
		ledger:    ledger,
		processor: processor,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit routes a DRAFT request and materializes the route
func (s *approvalServiceImpl) Submit(ctx context.Context, ref entity.SubjectRef) (*SubmitResult, error) {
	req, err := s.GetRequest(ctx, ref)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusDraft {
		return nil, fmt.Errorf("%s is %s: %w", ref, req.Status, workflow.ErrInvalidTransition)
	}

	route, err := s.resolver.Resolve(ctx, RouteRequest{
		RequesterID:     req.RequesterID,
		Amount:          req.Amount,
		Category:        req.Category,
		HasReceipt:      req.HasReceipt,
		RequisitionType: req.RequisitionType,
	})
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.Materialize(ctx, ref, route)
	if err != nil {
		var noRoute *NoRouteFoundError
		if errors.As(err, &noRoute) {
			s.publish(ctx, event.NewEvent(event.TypeRequestUnrouted, ref, map[string]interface{}{
				"reason": route.Reason,
				"amount": req.Amount,
			}))
		}
		return nil, err
	}

	updated, err := s.GetRequest(ctx, ref)
	if err != nil {
		return nil, err
	}

	if route.AutoApprove {
		evt := event.NewEvent(event.TypeRequestAutoApproved, ref, routePayload(route))
		s.publish(ctx, evt)
		s.publish(ctx, evt.Follow(event.TypeRequestApproved, map[string]interface{}{"status": string(updated.Status)}))
	} else {
		s.publish(ctx, event.NewEvent(event.TypeRequestSubmitted, ref, routePayload(route)).
			WithPayload("approvals", len(records)))
	}

	s.logger.Info("Request submitted",
		"subject", ref.String(),
		"auto_approve", route.AutoApprove,
		"status", updated.Status,
		"approvals", len(records),
	)
	return &SubmitResult{Request: updated, Route: route, Approvals: records}, nil
}

// Decide applies a decision and announces the result
func (s *approvalServiceImpl) Decide(ctx context.Context, d Decision) (*DecisionOutcome, error) {
	out, err := s.processor.Apply(ctx, d)
	if err != nil {
		return nil, err
	}
	if !out.Applied {
		return out, nil
	}

	evt := event.NewEvent(event.TypeApprovalDecided, out.Subject, map[string]interface{}{
		"approval_id": out.Record.ID,
		"approver_id": out.Record.ApproverID,
		"level":       out.Record.Level,
		"decision":    string(out.Record.Status),
		"override":    out.Record.IsOverride,
		"skipped":     out.Skipped,
	})
	s.publish(ctx, evt)

	if out.Resolved {
		typ := event.TypeRequestRejected
		if out.SubjectStatus == entity.RequestStatusApproved {
			typ = event.TypeRequestApproved
		}
		s.publish(ctx, evt.Follow(typ, map[string]interface{}{"status": string(out.SubjectStatus)}))
	}
	return out, nil
}

// GetRequest loads one request
func (s *approvalServiceImpl) GetRequest(ctx context.Context, ref entity.SubjectRef) (*entity.Request, error) {
	repo, err := s.requests.For(ref.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	req, err := repo.GetByID(ctx, ref.ID)
	if err != nil {
		s.logger.Error("Failed to get request", "subject", ref.String(), "error", err)
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return req, nil
}

// ListApprovals returns the approval trail of a request
func (s *approvalServiceImpl) ListApprovals(ctx context.Context, ref entity.SubjectRef) ([]*entity.ApprovalRecord, error) {
	if _, err := s.GetRequest(ctx, ref); err != nil {
		return nil, err
	}
	records, err := s.approvals.ListBySubject(ctx, ref)
	if err != nil {
		s.logger.Error("Failed to list approvals", "subject", ref.String(), "error", err)
		return nil, err
	}
	if records == nil {
		records = []*entity.ApprovalRecord{}
	}
	return records, nil
}

func (s *approvalServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.DispatchAsync(ctx, evt)
}

func routePayload(route *entity.ApprovalRoute) map[string]interface{} {
	payload := map[string]interface{}{
		"reason":         route.Reason,
		"levels":         len(route.Levels),
		"estimated_days": route.EstimatedDays,
	}
	if route.RuleID != "" {
		payload["rule_id"] = route.RuleID
	}
	if route.PolicyID != nil {
		payload["policy_id"] = *route.PolicyID
	}
	return payload
}
