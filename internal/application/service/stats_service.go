package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/pkg/utils"
)

// ApproverStats summarises one approver's records over a trailing window
type ApproverStats struct {
	ApproverID           int64   `json:"approver_id"`
	WindowDays           int     `json:"window_days"`
	Total                int     `json:"total"`
	Approved             int     `json:"approved"`
	Rejected             int     `json:"rejected"`
	Pending              int     `json:"pending"`
	Skipped              int     `json:"skipped"`
	ApprovalRate         float64 `json:"approval_rate"`
	AvgResponseTimeHours float64 `json:"avg_response_time_hours"`
}

// StatsAggregator computes read-side approver statistics
type StatsAggregator interface {
	Stats(ctx context.Context, approverID int64, windowDays int) (*ApproverStats, error)
}

type statsAggregatorImpl struct {
	approvals port.ApprovalRepository
	logger    Logger
	now       func() time.Time
}

// NewStatsAggregator creates a new StatsAggregator
func NewStatsAggregator(approvals port.ApprovalRepository, logger Logger) StatsAggregator {
	return &statsAggregatorImpl{
		approvals: approvals,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Stats counts records created inside the window. ApprovalRate is the share of
// approvals among approved and rejected records, in percent. The response time
// average covers decided records only.
func (s *statsAggregatorImpl) Stats(ctx context.Context, approverID int64, windowDays int) (*ApproverStats, error) {
	if err := utils.ValidateID("approver_id", approverID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("%w: window_days must be positive, got %d", ErrInvalidInput, windowDays)
	}

	since := s.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	records, err := s.approvals.ListByApprover(ctx, approverID, since)
	if err != nil {
		s.logger.Error("Failed to load approver records", "approver_id", approverID, "error", err)
		return nil, fmt.Errorf("load records of approver %d: %w", approverID, err)
	}

	stats := &ApproverStats{ApproverID: approverID, WindowDays: windowDays}
	var responseTotal time.Duration
	var responded int

	for _, rec := range records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		switch rec.Status {
		case entity.ApprovalStatusApproved:
			stats.Approved++
		case entity.ApprovalStatusRejected:
			stats.Rejected++
		case entity.ApprovalStatusPending:
			stats.Pending++
		case entity.ApprovalStatusSkipped:
			stats.Skipped++
		}
		if rec.Status == entity.ApprovalStatusApproved || rec.Status == entity.ApprovalStatusRejected {
			if d, ok := rec.ResponseTime(); ok {
				responseTotal += d
				responded++
			}
		}
	}

	if decided := stats.Approved + stats.Rejected; decided > 0 {
		stats.ApprovalRate = round2(float64(stats.Approved) / float64(decided) * 100)
	}
	if responded > 0 {
		stats.AvgResponseTimeHours = round2(responseTotal.Hours() / float64(responded))
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
