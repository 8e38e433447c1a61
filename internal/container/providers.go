package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/spend-approval/internal/application/dispatcher"
	"github.com/garyjia/spend-approval/internal/application/port"
	"github.com/garyjia/spend-approval/internal/application/service"
	"github.com/garyjia/spend-approval/internal/domain/event"
	"github.com/garyjia/spend-approval/internal/domain/rule"
	"github.com/garyjia/spend-approval/internal/domain/workflow"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/spend-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/spend-approval/migrations"
	"github.com/garyjia/spend-approval/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrationsFS(migrations.FS)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:  repository.NewRequestRepositories(sqlDB, logger),
		Approvals: repository.NewApprovalRepository(sqlDB, logger),
		Policies:  repository.NewPolicyRepository(sqlDB, logger),
		Users:     repository.NewUserRepository(sqlDB, logger),
	}, nil
}

// ProvideRuleSet loads the static rule table from cfg.RulesPath, or returns
// the built-in table when no path is configured.
func ProvideRuleSet(cfg *RoutingConfig, logger *zap.Logger) (*rule.Set, error) {
	if cfg.RulesPath == "" {
		set, err := rule.NewSet(rule.DefaultRules())
		if err != nil {
			return nil, fmt.Errorf("invalid built-in rules: %w", err)
		}
		logger.Info("Using built-in routing rules", zap.Int("rules", set.Len()))
		return set, nil
	}

	set, err := rule.LoadFile(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing rules: %w", err)
	}
	logger.Info("Routing rules loaded", zap.String("path", cfg.RulesPath), zap.Int("rules", set.Len()))
	return set, nil
}

// ProvideDispatcher creates the event dispatcher with the event log subscribed
// to every event type.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	)
	d.SubscribeAll(event.AllTypes, "event_log", newEventLogHandler(logger))
	return d, nil
}

// newEventLogHandler records every published event in the application log
func newEventLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			zap.String("event_id", evt.ID),
			zap.String("type", evt.Type.String()),
			zap.String("subject", evt.Subject.String()),
			zap.String("correlation_id", evt.CorrelationID),
			zap.Any("payload", evt.Payload),
			zap.Time("timestamp", evt.Timestamp),
		)
		return nil
	}
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Rules     *rule.Set
	Routing   *RoutingConfig
	Publisher port.EventPublisher
	Logger    *zap.Logger
}

// ProvideServices creates the routing, decision and stats services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Rules == nil {
		return nil, fmt.Errorf("rule set is required")
	}
	if deps.Routing == nil {
		return nil, fmt.Errorf("routing config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}
	lifecycle := workflow.NewLifecycle()

	approvers := service.NewApproverResolver(deps.Repos.Users, service.ApproverResolverConfig{
		MaxApproversPerLevel:  deps.Routing.MaxApproversPerLevel,
		DepartmentScopedRoles: deps.Routing.DepartmentScopedRoles,
	}, logger)

	routes := service.NewRouteResolver(
		service.NewPolicyCatalog(deps.Repos.Policies, logger),
		deps.Rules,
		approvers,
		deps.Repos.Users,
		service.RoutingConfig{
			ExpeditedType:   deps.Routing.ExpeditedType,
			LegacyThreshold: deps.Routing.LegacyThreshold,
		},
		logger,
	)

	ledger := service.NewApprovalLedger(deps.Repos.Requests, deps.Repos.Approvals, deps.TxManager, lifecycle, logger)
	processor := service.NewDecisionProcessor(
		deps.Repos.Requests,
		deps.Repos.Approvals,
		deps.TxManager,
		lifecycle,
		service.DecisionProcessorConfig{EnforceLevelOrder: deps.Routing.EnforceLevelOrder},
		logger,
	)

	return &ServiceBundle{
		Routes: routes,
		Approval: service.NewApprovalService(
			deps.Repos.Requests,
			deps.Repos.Approvals,
			routes,
			ledger,
			processor,
			deps.Publisher,
			logger,
		),
		Stats: service.NewStatsAggregator(deps.Repos.Approvals, logger),
	}, nil
}
