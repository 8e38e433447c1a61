package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/event"
)

type mockPolicyRepo struct {
	listActiveFunc func(ctx context.Context, policyType string) ([]*entity.Policy, error)
}

func (m *mockPolicyRepo) Create(ctx context.Context, policy *entity.Policy) error {
	policy.ID = 1
	return nil
}

func (m *mockPolicyRepo) ListActive(ctx context.Context, policyType string) ([]*entity.Policy, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx, policyType)
	}
	return nil, nil
}

type mockUserRepo struct {
	getByIDFunc          func(ctx context.Context, id int64) (*entity.User, error)
	listActiveByRoleFunc func(ctx context.Context, role, department string, limit int) ([]*entity.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	user.ID = 1
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.User{ID: id, Name: "user", IsActive: true}, nil
}

func (m *mockUserRepo) ListActiveByRole(ctx context.Context, role, department string, limit int) ([]*entity.User, error) {
	if m.listActiveByRoleFunc != nil {
		return m.listActiveByRoleFunc(ctx, role, department, limit)
	}
	return nil, nil
}

type mockRequestRepo struct {
	kind                 entity.SubjectKind
	getByIDFunc          func(ctx context.Context, id int64) (*entity.Request, error)
	transitionStatusFunc func(ctx context.Context, id int64, from, to entity.RequestStatus, at time.Time) (bool, error)

	transitions []entity.RequestStatus
}

func (m *mockRequestRepo) Kind() entity.SubjectKind {
	return m.kind
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	req.ID = 1
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Request{ID: id, Kind: m.kind, Status: entity.RequestStatusDraft}, nil
}

func (m *mockRequestRepo) TransitionStatus(ctx context.Context, id int64, from, to entity.RequestStatus, at time.Time) (bool, error) {
	m.transitions = append(m.transitions, to)
	if m.transitionStatusFunc != nil {
		return m.transitionStatusFunc(ctx, id, from, to, at)
	}
	return true, nil
}

type mockApprovalRepo struct {
	createBatchFunc    func(ctx context.Context, records []*entity.ApprovalRecord) error
	getByIDFunc        func(ctx context.Context, id int64) (*entity.ApprovalRecord, error)
	listBySubjectFunc  func(ctx context.Context, ref entity.SubjectRef) ([]*entity.ApprovalRecord, error)
	countBySubjectFunc func(ctx context.Context, ref entity.SubjectRef) (map[entity.ApprovalStatus]int, error)
	decideFunc         func(ctx context.Context, id int64, status entity.ApprovalStatus, comments string, override bool, decidedAt time.Time) (bool, error)
	skipPendingFunc    func(ctx context.Context, ref entity.SubjectRef, exceptID int64) (int64, error)
	listByApproverFunc func(ctx context.Context, approverID int64, since time.Time) ([]*entity.ApprovalRecord, error)

	decideCalls int
	skipCalls   int
}

func (m *mockApprovalRepo) CreateBatch(ctx context.Context, records []*entity.ApprovalRecord) error {
	if m.createBatchFunc != nil {
		return m.createBatchFunc(ctx, records)
	}
	for i, r := range records {
		r.ID = int64(i + 1)
	}
	return nil
}

func (m *mockApprovalRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalRecord, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockApprovalRepo) ListBySubject(ctx context.Context, ref entity.SubjectRef) ([]*entity.ApprovalRecord, error) {
	if m.listBySubjectFunc != nil {
		return m.listBySubjectFunc(ctx, ref)
	}
	return nil, nil
}

func (m *mockApprovalRepo) CountBySubject(ctx context.Context, ref entity.SubjectRef) (map[entity.ApprovalStatus]int, error) {
	if m.countBySubjectFunc != nil {
		return m.countBySubjectFunc(ctx, ref)
	}
	return map[entity.ApprovalStatus]int{}, nil
}

func (m *mockApprovalRepo) Decide(ctx context.Context, id int64, status entity.ApprovalStatus, comments string, override bool, decidedAt time.Time) (bool, error) {
	m.decideCalls++
	if m.decideFunc != nil {
		return m.decideFunc(ctx, id, status, comments, override, decidedAt)
	}
	return true, nil
}

func (m *mockApprovalRepo) SkipPending(ctx context.Context, ref entity.SubjectRef, exceptID int64) (int64, error) {
	m.skipCalls++
	if m.skipPendingFunc != nil {
		return m.skipPendingFunc(ctx, ref, exceptID)
	}
	return 0, nil
}

func (m *mockApprovalRepo) ListByApprover(ctx context.Context, approverID int64, since time.Time) ([]*entity.ApprovalRecord, error) {
	if m.listByApproverFunc != nil {
		return m.listByApproverFunc(ctx, approverID, since)
	}
	return nil, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) WarnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warns)
}

// recordingPublisher captures published events synchronously
type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	p.DispatchAsync(ctx, evt)
	return nil
}

func (p *recordingPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]event.Type, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func int64Ref(v int64) *int64 { return &v }

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
