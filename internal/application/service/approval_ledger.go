package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/workflow"
	"github.com/garyjia/spend-approval/pkg/tracing"
)

// ApprovalLedger turns a resolved route into persisted approval records
type ApprovalLedger interface {
	// Materialize writes one PENDING record per (level, approver) pair and
	// moves the request out of DRAFT. Auto-approved routes write no records.
	Materialize(ctx context.Context, ref entity.SubjectRef, route *entity.ApprovalRoute) ([]*entity.ApprovalRecord, error)
}

type approvalLedgerImpl struct {
	requests  port.RequestRepositories
	approvals port.ApprovalRepository
	txManager port.TransactionManager
	lifecycle *workflow.Lifecycle
	logger    Logger
	now       func() time.Time
}

// NewApprovalLedger creates a new ApprovalLedger
func NewApprovalLedger(
	requests port.RequestRepositories,
	approvals port.ApprovalRepository,
	txManager port.TransactionManager,
	lifecycle *workflow.Lifecycle,
	logger Logger,
) ApprovalLedger {
	return &approvalLedgerImpl{
		requests:  requests,
		approvals: approvals,
		txManager: txManager,
		lifecycle: lifecycle,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (l *approvalLedgerImpl) Materialize(ctx context.Context, ref entity.SubjectRef, route *entity.ApprovalRoute) (records []*entity.ApprovalRecord, err error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.materialize", attribute.String("subject", ref.String()))
	defer func() {
		span.SetAttributes(attribute.Int("records", len(records)))
		tracing.EndSpan(span, err)
	}()

	if route == nil {
		return nil, fmt.Errorf("%w: route is required", ErrInvalidInput)
	}
	repo, err := l.requests.For(ref.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if route.Unrouted() {
		return nil, &NoRouteFoundError{Subject: ref, Reason: route.Reason}
	}
	if !route.AutoApprove {
		for _, level := range route.Levels {
			if len(level.Approvers) == 0 {
				return nil, &UnresolvedApproverError{Subject: ref, Level: level.Level, Role: level.Role}
			}
		}
	}

	trigger := workflow.TriggerSubmit
	if route.AutoApprove {
		trigger = workflow.TriggerAutoApprove
	}

	now := l.now()
	records = []*entity.ApprovalRecord{}
	if !route.AutoApprove {
		for _, level := range route.Levels {
			for _, approver := range level.Approvers {
				records = append(records, entity.NewApprovalRecord(ref, approver.ID, level.Level, now))
			}
		}
	}

	err = l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := repo.GetByID(txCtx, ref.ID)
		if err != nil {
			return fmt.Errorf("load %s: %w", ref, err)
		}
		if req == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}

		next, err := l.lifecycle.Transition(req.Status, trigger)
		if err != nil {
			return fmt.Errorf("%s: %w", ref, err)
		}

		if len(records) > 0 {
			if err := l.approvals.CreateBatch(txCtx, records); err != nil {
				return fmt.Errorf("create approval records: %w", err)
			}
		}

		ok, err := repo.TransitionStatus(txCtx, ref.ID, req.Status, next, now)
		if err != nil {
			return fmt.Errorf("update %s status: %w", ref, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s changed status while routing", ErrConcurrencyConflict, ref)
		}
		return nil
	})
	if err != nil {
		l.logger.Error("Failed to materialize route", "subject", ref.String(), "error", err)
		return nil, err
	}

	l.logger.Info("Route materialized",
		"subject", ref.String(),
		"auto_approve", route.AutoApprove,
		"records", len(records),
	)
	return records, nil
}
