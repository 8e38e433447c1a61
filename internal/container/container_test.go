package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/event"
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "container.db")
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Database.Path = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "database.path")

	cfg = DefaultConfig()
	cfg.Routing.MaxApproversPerLevel = 0
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "max_approvers_per_level")
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, c.Ready())

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	require.NotNil(t, c.Services())
	assert.NotNil(t, c.Services().Approval)
	assert.NotNil(t, c.Services().Routes)
	assert.NotNil(t, c.Services().Stats)
	assert.Equal(t, 6, c.Rules().Len())
	assert.Len(t, c.Repositories().Requests, len(entity.SubjectKinds))

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close must fail")
	assert.Error(t, c.Start(context.Background()), "closed container must not restart")
}

func TestContainer_EndToEndSubmit(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	ctx := context.Background()
	requester := &entity.User{Name: "Riley", Role: "EMPLOYEE", IsActive: true}
	require.NoError(t, c.Repositories().Users.Create(ctx, requester))

	repo, err := c.Repositories().Requests.For(entity.SubjectExpense)
	require.NoError(t, err)
	req := &entity.Request{RequesterID: requester.ID, Amount: 25, Category: "Meals"}
	require.NoError(t, repo.Create(ctx, req))

	result, err := c.Services().Approval.Submit(ctx, req.Ref())
	require.NoError(t, err)
	assert.True(t, result.Route.AutoApprove)
	assert.Equal(t, entity.RequestStatusApproved, result.Request.Status)
}

func TestContainer_RulesFile(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`
rules:
  - id: everything-to-cfo
    name: Everything to the CFO
    priority: 1
    approver_levels:
      - level: 1
        role: CFO
        required: true
`), 0o600))

	cfg := testConfig(t)
	cfg.Routing.RulesPath = rulesPath
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Equal(t, 1, c.Rules().Len())
}

func TestContainer_BadRulesFileFailsStart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Routing.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, c.Start(context.Background()))
	assert.False(t, c.Ready())
}

func TestEventLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := newEventLogHandler(zap.New(core))

	evt := event.NewEvent(event.TypeRequestApproved, entity.SubjectRef{Kind: entity.SubjectBudget, ID: 9},
		map[string]interface{}{"status": "APPROVED"})
	require.NoError(t, handler(context.Background(), evt))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "request.approved", fields["type"])
	assert.Equal(t, "BUDGET:9", fields["subject"])
	assert.Equal(t, evt.CorrelationID, fields["correlation_id"])
}

func TestDispatcherLogsEveryEventType(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	d, err := ProvideDispatcher(zap.New(core))
	require.NoError(t, err)

	for _, typ := range event.AllTypes {
		assert.Len(t, d.ListHandlers(typ), 1, "type %s", typ)
		require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(typ, entity.SubjectRef{Kind: entity.SubjectExpense, ID: 1}, nil)))
	}
	require.NoError(t, d.Close())

	assert.Equal(t, len(event.AllTypes), logs.FilterMessage("Domain event").Len())
}

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewLoggerAdapter(zap.New(core))

	boom := errors.New("boom")
	adapter.Info("info", "subject", "EXPENSE:1", "count", 2)
	adapter.Warn("warn", "dangling")
	adapter.Error("error", "error", boom, 42, "ignored")

	all := logs.All()
	require.Len(t, all, 3)
	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, "EXPENSE:1", all[0].ContextMap()["subject"])
	assert.Equal(t, int64(2), all[0].ContextMap()["count"])

	assert.Equal(t, zapcore.WarnLevel, all[1].Level)
	assert.Empty(t, all[1].ContextMap())

	assert.Equal(t, zapcore.ErrorLevel, all[2].Level)
	assert.Equal(t, "boom", all[2].ContextMap()["error"])
	assert.Len(t, all[2].ContextMap(), 1)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "EMERGENCY", cfg.Routing.ExpeditedType)
	assert.Equal(t, 50.0, cfg.Routing.LegacyThreshold)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}
