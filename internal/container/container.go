package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/application/service"
	"github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/config"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	database *DatabaseBundle
	notifier port.Notifier

	// Application
	dispatcher dispatcher.Dispatcher
	workflow   workflow.WorkflowEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Voucher  service.VoucherService
	Settings service.SettingsService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components; call Start.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start builds the database, notifier, dispatcher, workflow engine and
// services, in that order. A failure part way releases what was opened.
func (c *Container) Start(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")
	defer func() {
		if err != nil {
			_ = c.teardown()
		}
	}()

	if c.database, err = ProvideDatabase(ctx, &c.config.Database, c.logger); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.database.Driver))

	if c.notifier, err = ProvideNotifier(&c.config.Lark, c.logger); err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	if c.dispatcher, err = ProvideDispatcher(c.config.Workflow.NotifyTimeout, c.logger); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	catalog, err := c.config.Workflow.Catalog()
	if err != nil {
		return fmt.Errorf("failed to build workflow catalog: %w", err)
	}

	c.workflow, err = ProvideWorkflowEngine(&WorkflowDeps{
		Repos:                  c.database.Repos,
		Catalog:                catalog,
		Dispatcher:             c.dispatcher,
		Notifier:               c.notifier,
		DefaultQuorumThreshold: c.config.Workflow.DefaultQuorumThreshold,
		Logger:                 c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize workflow engine: %w", err)
	}
	c.logger.Info("Workflow engine initialized")

	c.services, err = ProvideServices(&ServiceDeps{
		Repos:                  c.database.Repos,
		Dispatcher:             c.dispatcher,
		DefaultQuorumThreshold: c.config.Workflow.DefaultQuorumThreshold,
		Logger:                 c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close drains pending notifications, then closes the database.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()
	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases components in reverse start order. Caller holds mu.
func (c *Container) teardown() error {
	var errs []error
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.database = nil
	}
	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health pings the database and reports which components are wired.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth)}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		status.Overall = status.Overall && h.Healthy
	}
	wired := func(ok bool) ComponentHealth {
		if ok {
			return ComponentHealth{Healthy: true}
		}
		return ComponentHealth{Message: "not initialized"}
	}

	switch {
	case c.database == nil:
		set("database", wired(false))
	default:
		if err := c.database.Ping(ctx); err != nil {
			set("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true, Message: c.database.Driver})
		}
	}
	set("dispatcher", wired(c.dispatcher != nil))
	set("workflow", wired(c.workflow != nil))

	return status
}

// Repositories returns the storage ports.
func (c *Container) Repositories() port.Repositories {
	if c.database == nil {
		return port.Repositories{}
	}
	return c.database.Repos
}

// Notifier returns the next-stage notifier.
func (c *Container) Notifier() port.Notifier {
	return c.notifier
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.WorkflowEngine {
	return c.workflow
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
