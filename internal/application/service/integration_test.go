package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/application/service"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/rule"
	"github.com/garyjia/spend-approval/internal/domain/workflow"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/spend-approval/migrations"
	"github.com/garyjia/spend-approval/pkg/database"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type engine struct {
	requests  port.RequestRepositories
	approvals port.ApprovalRepository
	users     port.UserRepository
	policies  port.PolicyRepository
	service   service.ApprovalService
	stats     service.StatsAggregator

	requester *entity.User
	manager   *entity.User
	finance   []*entity.User
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	zl := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "engine.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}, zl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, zl).RunMigrationsFS(migrations.FS))

	e := &engine{
		requests:  repository.NewRequestRepositories(db.DB, zl),
		approvals: repository.NewApprovalRepository(db.DB, zl),
		users:     repository.NewUserRepository(db.DB, zl),
		policies:  repository.NewPolicyRepository(db.DB, zl),
	}

	ctx := context.Background()
	e.manager = &entity.User{Name: "Morgan", Role: entity.RoleManager, Department: "Sales", IsActive: true}
	require.NoError(t, e.users.Create(ctx, e.manager))
	e.requester = &entity.User{Name: "Riley", Role: "EMPLOYEE", Department: "Sales", ManagerID: &e.manager.ID, IsActive: true}
	require.NoError(t, e.users.Create(ctx, e.requester))
	for _, name := range []string{"Avery", "Jordan"} {
		u := &entity.User{Name: name, Role: entity.RoleFinanceTeam, Department: "Sales", IsActive: true}
		require.NoError(t, e.users.Create(ctx, u))
		e.finance = append(e.finance, u)
	}

	logger := nopLogger{}
	txManager := sqlite.NewDB(db.DB, zl)
	lifecycle := workflow.NewLifecycle()
	resolver := service.NewRouteResolver(
		service.NewPolicyCatalog(e.policies, logger),
		rule.MustNewSet(rule.DefaultRules()),
		service.NewApproverResolver(e.users, service.ApproverResolverConfig{
			MaxApproversPerLevel:  3,
			DepartmentScopedRoles: []string{entity.RoleFinanceTeam},
		}, logger),
		e.users,
		service.RoutingConfig{ExpeditedType: "EMERGENCY", LegacyThreshold: 50},
		logger,
	)
	ledger := service.NewApprovalLedger(e.requests, e.approvals, txManager, lifecycle, logger)
	processor := service.NewDecisionProcessor(e.requests, e.approvals, txManager, lifecycle, service.DecisionProcessorConfig{}, logger)
	e.service = service.NewApprovalService(e.requests, e.approvals, resolver, ledger, processor, nil, logger)
	e.stats = service.NewStatsAggregator(e.approvals, logger)
	return e
}

func (e *engine) draft(t *testing.T, kind entity.SubjectKind, amount float64, category string) entity.SubjectRef {
	t.Helper()
	repo, err := e.requests.For(kind)
	require.NoError(t, err)
	req := &entity.Request{RequesterID: e.requester.ID, Title: "trip", Amount: amount, Category: category}
	require.NoError(t, repo.Create(context.Background(), req))
	return req.Ref()
}

func (e *engine) status(t *testing.T, ref entity.SubjectRef) entity.RequestStatus {
	t.Helper()
	req, err := e.service.GetRequest(context.Background(), ref)
	require.NoError(t, err)
	return req.Status
}

func countStatuses(records []*entity.ApprovalRecord) map[entity.ApprovalStatus]int {
	counts := make(map[entity.ApprovalStatus]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

func TestEngine_LegacyThresholdAutoApproves(t *testing.T) {
	e := newEngine(t)
	ref := e.draft(t, entity.SubjectExpense, 30, "Travel")

	result, err := e.service.Submit(context.Background(), ref)
	require.NoError(t, err)

	assert.True(t, result.Route.AutoApprove)
	assert.Contains(t, result.Route.Reason, "Legacy threshold ($50)")
	assert.Empty(t, result.Approvals)
	assert.Equal(t, entity.RequestStatusApproved, result.Request.Status)
	assert.NotNil(t, result.Request.DecidedAt)
}

func TestEngine_PolicyAutoApprovesBeforeRules(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.policies.Create(ctx, &entity.Policy{
		Name: "travel-allowance", Type: entity.PolicyTypeAutoApproval, IsActive: true,
		RulesJSON: `{"amountMax": 6000}`, Priority: 1,
	}))
	require.NoError(t, e.policies.Create(ctx, &entity.Policy{
		Name: "broken", Type: entity.PolicyTypeAutoApproval, IsActive: true,
		RulesJSON: `{"amountMax":`, Priority: 0,
	}))
	ref := e.draft(t, entity.SubjectRequisition, 5000, "Travel")

	result, err := e.service.Submit(ctx, ref)
	require.NoError(t, err)
	assert.True(t, result.Route.AutoApprove)
	assert.Contains(t, result.Route.Reason, `"travel-allowance"`)
	require.NotNil(t, result.Route.PolicyID)
	assert.Equal(t, entity.RequestStatusApproved, e.status(t, ref))
}

func TestEngine_ReverseOrderTwoLevelApproval(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ref := e.draft(t, entity.SubjectExpense, 5000, "Travel")

	result, err := e.service.Submit(ctx, ref)
	require.NoError(t, err)
	require.Len(t, result.Route.Levels, 2)
	assert.Equal(t, 3.0, result.Route.EstimatedDays)
	require.Len(t, result.Approvals, 3)
	assert.Equal(t, entity.RequestStatusPendingApproval, result.Request.Status)

	var levelOne []*entity.ApprovalRecord
	var levelTwo []*entity.ApprovalRecord
	for _, rec := range result.Approvals {
		if rec.Level == 1 {
			levelOne = append(levelOne, rec)
		} else {
			levelTwo = append(levelTwo, rec)
		}
	}
	require.Len(t, levelOne, 1)
	require.Len(t, levelTwo, 2)
	assert.Equal(t, e.manager.ID, levelOne[0].ApproverID)

	for _, rec := range levelTwo {
		out, err := e.service.Decide(ctx, service.Decision{ApprovalID: rec.ID, Decision: entity.ApprovalStatusApproved})
		require.NoError(t, err)
		assert.False(t, out.Resolved)
	}
	assert.Equal(t, entity.RequestStatusPendingApproval, e.status(t, ref))

	out, err := e.service.Decide(ctx, service.Decision{ApprovalID: levelOne[0].ID, Decision: entity.ApprovalStatusApproved, Comments: "fine"})
	require.NoError(t, err)
	assert.True(t, out.Resolved)
	assert.Equal(t, entity.RequestStatusApproved, e.status(t, ref))

	records, err := e.service.ListApprovals(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 3, countStatuses(records)[entity.ApprovalStatusApproved])
}

func TestEngine_OverrideRejection(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ref := e.draft(t, entity.SubjectBudget, 5000, "Travel")

	result, err := e.service.Submit(ctx, ref)
	require.NoError(t, err)
	require.Len(t, result.Approvals, 3)

	target := result.Approvals[1]
	out, err := e.service.Decide(ctx, service.Decision{
		ApprovalID: target.ID,
		Decision:   entity.ApprovalStatusRejected,
		Comments:   "budget frozen",
		IsOverride: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Skipped)
	assert.Equal(t, entity.RequestStatusRejected, e.status(t, ref))

	records, err := e.service.ListApprovals(ctx, ref)
	require.NoError(t, err)
	counts := countStatuses(records)
	assert.Equal(t, 1, counts[entity.ApprovalStatusRejected])
	assert.Equal(t, 2, counts[entity.ApprovalStatusSkipped])
	assert.Zero(t, counts[entity.ApprovalStatusPending])

	replay, err := e.service.Decide(ctx, service.Decision{ApprovalID: target.ID, Decision: entity.ApprovalStatusRejected, IsOverride: true})
	require.NoError(t, err)
	assert.False(t, replay.Applied)
	assert.Equal(t, counts, countStatuses(mustList(t, e, ref)))

	_, err = e.service.Decide(ctx, service.Decision{ApprovalID: result.Approvals[0].ID, Decision: entity.ApprovalStatusApproved})
	assert.ErrorIs(t, err, service.ErrConcurrencyConflict)
}

func mustList(t *testing.T, e *engine, ref entity.SubjectRef) []*entity.ApprovalRecord {
	t.Helper()
	records, err := e.service.ListApprovals(context.Background(), ref)
	require.NoError(t, err)
	return records
}

func TestEngine_ConcurrentDecisionsResolveOnce(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ref := e.draft(t, entity.SubjectExpense, 5000, "Travel")

	result, err := e.service.Submit(ctx, ref)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		resolved int
		wg       sync.WaitGroup
	)
	for _, rec := range result.Approvals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.service.Decide(ctx, service.Decision{ApprovalID: rec.ID, Decision: entity.ApprovalStatusApproved})
			if !assert.NoError(t, err) {
				return
			}
			if out.Resolved {
				mu.Lock()
				resolved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, resolved)
	assert.Equal(t, entity.RequestStatusApproved, e.status(t, ref))
}

func TestEngine_ConcurrentConflictingDecisions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ref := e.draft(t, entity.SubjectExpense, 5000, "Travel")

	result, err := e.service.Submit(ctx, ref)
	require.NoError(t, err)
	target := result.Approvals[0].ID

	decisions := []entity.ApprovalStatus{entity.ApprovalStatusApproved, entity.ApprovalStatusRejected}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.service.Decide(ctx, service.Decision{ApprovalID: target, Decision: d})
		}()
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, service.ErrConcurrencyConflict)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	rec, err := e.approvals.GetByID(ctx, target)
	require.NoError(t, err)
	assert.True(t, rec.IsDecided())
}

func TestEngine_ResubmitIsRejected(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ref := e.draft(t, entity.SubjectExpense, 800, "Meals")

	_, err := e.service.Submit(ctx, ref)
	require.NoError(t, err)

	_, err = e.service.Submit(ctx, ref)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	records := mustList(t, e, ref)
	assert.Len(t, records, 1)
}

func TestEngine_UnresolvedApproverWritesNothing(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	ref := e.draft(t, entity.SubjectExpense, 20000, "Hardware")

	_, err := e.service.Submit(ctx, ref)
	assert.ErrorIs(t, err, service.ErrUnresolvedApprover)
	assert.Equal(t, entity.RequestStatusDraft, e.status(t, ref))
	assert.Empty(t, mustList(t, e, ref))
}

func TestEngine_ApproverStats(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	for _, amount := range []float64{600, 700, 900} {
		ref := e.draft(t, entity.SubjectExpense, amount, "Meals")
		result, err := e.service.Submit(ctx, ref)
		require.NoError(t, err)
		require.Len(t, result.Approvals, 1)
		if amount != 900 {
			_, err = e.service.Decide(ctx, service.Decision{ApprovalID: result.Approvals[0].ID, Decision: entity.ApprovalStatusApproved})
			require.NoError(t, err)
		}
	}

	stats, err := e.stats.Stats(ctx, e.manager.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 100.0, stats.ApprovalRate)
	assert.GreaterOrEqual(t, stats.AvgResponseTimeHours, 0.0)
	assert.Less(t, stats.AvgResponseTimeHours, time.Minute.Hours())
}
