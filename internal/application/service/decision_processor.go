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
	"github.com/garyjia/spend-approval/pkg/utils"
)

// Decision is one approver's verdict on one approval record
type Decision struct {
	ApprovalID int64                 `json:"approval_id"`
	Decision   entity.ApprovalStatus `json:"decision"`
	Comments   string                `json:"comments"`
	IsOverride bool                  `json:"is_override"`
}

// DecisionOutcome describes what Apply changed
type DecisionOutcome struct {
	Record        *entity.ApprovalRecord `json:"record"`
	Subject       entity.SubjectRef      `json:"subject"`
	SubjectStatus entity.RequestStatus   `json:"subject_status"`

	// Applied is false when the same decision had already been recorded
	Applied bool `json:"applied"`

	// Resolved is true when this decision moved the request to a terminal status
	Resolved bool  `json:"resolved"`
	Skipped  int64 `json:"skipped"`
}

// DecisionProcessorConfig toggles optional decision rules
type DecisionProcessorConfig struct {
	// EnforceLevelOrder rejects a decision on level L while a lower level is still pending.
	// Overrides are never gated.
	EnforceLevelOrder bool
}

// DecisionProcessor applies decisions and cascades them onto the owning request
type DecisionProcessor interface {
	Apply(ctx context.Context, d Decision) (*DecisionOutcome, error)
}

type decisionProcessorImpl struct {
	requests  port.RequestRepositories
	approvals port.ApprovalRepository
	txManager port.TransactionManager
	lifecycle *workflow.Lifecycle
	cfg       DecisionProcessorConfig
	logger    Logger
	now       func() time.Time
}

// NewDecisionProcessor creates a new DecisionProcessor
func NewDecisionProcessor(
	requests port.RequestRepositories,
	approvals port.ApprovalRepository,
	txManager port.TransactionManager,
	lifecycle *workflow.Lifecycle,
	cfg DecisionProcessorConfig,
	logger Logger,
) DecisionProcessor {
	return &decisionProcessorImpl{
		requests:  requests,
		approvals: approvals,
		txManager: txManager,
		lifecycle: lifecycle,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply records the decision and evaluates the cascade in one transaction.
// Replaying a decision that is already recorded is a no-op.
func (p *decisionProcessorImpl) Apply(ctx context.Context, d Decision) (out *DecisionOutcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "decision.apply",
		attribute.Int64("approval_id", d.ApprovalID),
		attribute.String("decision", string(d.Decision)),
		attribute.Bool("override", d.IsOverride),
	)
	defer func() {
		if out != nil {
			span.SetAttributes(
				attribute.String("subject", out.Subject.String()),
				attribute.String("subject_status", string(out.SubjectStatus)),
			)
		}
		tracing.EndSpan(span, err)
	}()

	if err := utils.ValidateID("approval_id", d.ApprovalID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if d.Decision != entity.ApprovalStatusApproved && d.Decision != entity.ApprovalStatusRejected {
		return nil, fmt.Errorf("%w: decision must be APPROVED or REJECTED, got %q", ErrInvalidInput, d.Decision)
	}
	d.Comments = utils.SanitizeString(d.Comments)

	err = p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		out, err = p.apply(txCtx, d)
		return err
	})
	if err != nil {
		p.logger.Error("Failed to apply decision",
			"approval_id", d.ApprovalID,
			"decision", d.Decision,
			"override", d.IsOverride,
			"error", err,
		)
		return nil, err
	}

	p.logger.Info("Decision applied",
		"approval_id", d.ApprovalID,
		"decision", d.Decision,
		"override", d.IsOverride,
		"applied", out.Applied,
		"subject", out.Subject.String(),
		"subject_status", out.SubjectStatus,
		"skipped", out.Skipped,
	)
	return out, nil
}

func (p *decisionProcessorImpl) apply(ctx context.Context, d Decision) (*DecisionOutcome, error) {
	rec, err := p.approvals.GetByID(ctx, d.ApprovalID)
	if err != nil {
		return nil, fmt.Errorf("load approval %d: %w", d.ApprovalID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: approval %d", ErrNotFound, d.ApprovalID)
	}

	ref, err := rec.Subject()
	if err != nil {
		return nil, &SubjectResolutionError{ApprovalID: rec.ID, Err: err}
	}
	repo, err := p.requests.For(ref.Kind)
	if err != nil {
		return nil, &SubjectResolutionError{ApprovalID: rec.ID, Err: err}
	}
	req, err := repo.GetByID(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	if req == nil {
		return nil, &SubjectResolutionError{ApprovalID: rec.ID, Err: fmt.Errorf("%s does not exist", ref)}
	}

	out := &DecisionOutcome{Record: rec, Subject: ref, SubjectStatus: req.Status}

	if rec.IsDecided() {
		if rec.Status == d.Decision {
			return out, nil
		}
		return nil, fmt.Errorf("%w: approval %d is already %s", ErrConcurrencyConflict, rec.ID, rec.Status)
	}

	if p.cfg.EnforceLevelOrder && !d.IsOverride {
		if err := p.checkLevelOrder(ctx, ref, rec); err != nil {
			return nil, err
		}
	}

	now := p.now()
	ok, err := p.approvals.Decide(ctx, rec.ID, d.Decision, d.Comments, d.IsOverride, now)
	if err != nil {
		return nil, fmt.Errorf("decide approval %d: %w", rec.ID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: approval %d was decided concurrently", ErrConcurrencyConflict, rec.ID)
	}
	rec.Status = d.Decision
	rec.Comments = d.Comments
	rec.IsOverride = d.IsOverride
	rec.DecidedAt = &now
	out.Applied = true

	if d.Decision == entity.ApprovalStatusRejected || d.IsOverride {
		skipped, err := p.approvals.SkipPending(ctx, ref, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("skip pending approvals of %s: %w", ref, err)
		}
		out.Skipped = skipped

		trigger := workflow.TriggerReject
		if d.Decision == entity.ApprovalStatusApproved {
			trigger = workflow.TriggerApprove
		}
		return out, p.resolve(ctx, repo, req, trigger, now, out)
	}

	counts, err := p.approvals.CountBySubject(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("count approvals of %s: %w", ref, err)
	}
	if counts[entity.ApprovalStatusPending] == 0 && counts[entity.ApprovalStatusRejected] == 0 {
		return out, p.resolve(ctx, repo, req, workflow.TriggerApprove, now, out)
	}
	return out, nil
}

// resolve moves the request to the status reached by trigger. A request that is
// already terminal is left alone.
func (p *decisionProcessorImpl) resolve(ctx context.Context, repo port.RequestRepository, req *entity.Request, trigger workflow.Trigger, now time.Time, out *DecisionOutcome) error {
	if req.Status.IsTerminal() {
		p.logger.Info("Request already resolved", "subject", req.Ref().String(), "status", req.Status)
		return nil
	}

	next, err := p.lifecycle.Transition(req.Status, trigger)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Ref(), err)
	}

	ok, err := repo.TransitionStatus(ctx, req.ID, req.Status, next, now)
	if err != nil {
		return fmt.Errorf("update %s status: %w", req.Ref(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s changed status concurrently", ErrConcurrencyConflict, req.Ref())
	}

	out.SubjectStatus = next
	out.Resolved = true
	return nil
}

func (p *decisionProcessorImpl) checkLevelOrder(ctx context.Context, ref entity.SubjectRef, rec *entity.ApprovalRecord) error {
	records, err := p.approvals.ListBySubject(ctx, ref)
	if err != nil {
		return fmt.Errorf("list approvals of %s: %w", ref, err)
	}
	for _, other := range records {
		if other.Level < rec.Level && other.Status == entity.ApprovalStatusPending {
			return fmt.Errorf("%w: level %d of %s must be decided before level %d", ErrLevelOrder, other.Level, ref, rec.Level)
		}
	}
	return nil
}
