// Package container provides dependency injection and lifecycle management
// for the voucher approval service.
package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/application/service"
	"github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/config"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
	infraLark "github.com/garyjia/voucher-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/voucher-approval/internal/infrastructure/persistence/postgres"
	"github.com/garyjia/voucher-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/voucher-approval/migrations"
	"github.com/garyjia/voucher-approval/pkg/database"
)

// DatabaseBundle holds the storage backend and its repositories.
type DatabaseBundle struct {
	Driver string
	Repos  port.Repositories
	Ping   func(ctx context.Context) error
	Close  func() error
}

// ProvideDatabase opens the configured backend and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		return provideSQLite(ctx, cfg, logger)
	case config.DriverPostgres:
		return providePostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func provideSQLite(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).Run(ctx, migrations.SQLite); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db := sqlite.NewDB(conn.DB, logger)
	return &DatabaseBundle{
		Driver: config.DriverSQLite,
		Repos:  db.Repositories(),
		Ping:   conn.PingContext,
		Close:  conn.Close,
	}, nil
}

func providePostgres(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	pool, err := postgres.NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := postgres.NewStore(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established", zap.String("driver", config.DriverPostgres))
	return &DatabaseBundle{
		Driver: config.DriverPostgres,
		Repos:  store.Repositories(),
		Ping:   pool.Ping,
		Close: func() error {
			store.Close()
			return nil
		},
	}, nil
}

// ProvideNotifier returns the Lark notifier when enabled, otherwise a log-only notifier.
func ProvideNotifier(cfg *config.LarkConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if !cfg.Enabled {
		logger.Info("Lark notifications disabled; logging next-stage notifications")
		return infraLark.NewLogNotifier(logger), nil
	}

	sdkClient := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)

	recipients := make(map[domainwf.Role]infraLark.Recipient, len(cfg.Recipients))
	for role, r := range cfg.RoleRecipients() {
		recipients[role] = infraLark.Recipient{
			ReceiveIDType: r.ReceiveIDType,
			ReceiveID:     r.ReceiveID,
		}
	}

	return infraLark.NewRoleNotifier(infraLark.NewMessenger(sdkClient, logger), recipients, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(asyncTimeout time.Duration, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(NewLoggerAdapter(logger))}
	if asyncTimeout > 0 {
		opts = append(opts, dispatcher.WithAsyncTimeout(asyncTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos                  port.Repositories
	Catalog                *domainwf.Catalog
	Dispatcher             dispatcher.Dispatcher
	Notifier               port.Notifier
	DefaultQuorumThreshold int
	Logger                 *zap.Logger
}

// ProvideWorkflowEngine creates the engine and registers the next-stage notifier.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("workflow catalog is required")
	}
	if deps.Repos.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := NewLoggerAdapter(deps.Logger)
	engine := workflow.NewEngine(deps.Repos, deps.Catalog,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(logger),
		workflow.WithDefaultQuorumThreshold(deps.DefaultQuorumThreshold),
	)

	if deps.Dispatcher != nil && deps.Notifier != nil {
		workflow.NewNextStageNotifier(engine, deps.Notifier, logger).Register(deps.Dispatcher)
	}

	return engine, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos                  port.Repositories
	Dispatcher             dispatcher.Dispatcher
	DefaultQuorumThreshold int
	Logger                 *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := NewLoggerAdapter(deps.Logger)

	return &ServiceBundle{
		Voucher: service.NewVoucherService(
			deps.Repos.Vouchers,
			deps.Repos.Audit,
			deps.Repos.TxManager,
			deps.Dispatcher,
			serviceLogger,
		),
		Settings: service.NewSettingsService(
			deps.Repos.Settings,
			deps.Repos.Audit,
			deps.Repos.TxManager,
			deps.Dispatcher,
			serviceLogger,
			deps.DefaultQuorumThreshold,
		),
	}, nil
}
