package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/dispatcher"
	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/application/service"
	"github.com/flowbooks/docflow/internal/config"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
)

// Externals holds the integrations the engine cannot provide itself.
// Role and delegate resolution live in the surrounding system.
type Externals struct {
	OrgUnits  port.OrgUnitLookup
	Delegates port.DelegateLookup
}

// Container manages all engine dependencies and lifecycle.
// Components initialize in dependency order and tear down in reverse.
type Container struct {
	config    *config.Config
	logger    *zap.Logger
	externals Externals

	// Infrastructure
	sqlDB        *sql.DB
	db           *sqlite.DB
	redisClient  *redis.Client
	locker       port.DocumentLocker
	repositories *RepositoryBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Definition      port.DefinitionRepository
	Instance        port.InstanceRepository
	Snapshot        port.SnapshotRepository
	DimensionConfig port.DimensionConfigRepository
	Audit           port.AuditRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Workflow    service.WorkflowService
	Status      service.StatusService
	Resolver    service.ApproverResolver
	Progression service.ProgressionService
	Dimension   service.DimensionService
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
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, externals Externals, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if externals.OrgUnits == nil {
		return nil, fmt.Errorf("org unit lookup is required")
	}
	if externals.Delegates == nil {
		return nil, fmt.Errorf("delegate lookup is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config:    cfg,
		logger:    logger,
		externals: externals,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, migrations and repositories
// 2. Document locker (Redis or in-process)
// 3. Status-change dispatcher
// 4. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	c.repositories = repos
	c.logger.Info("Database initialized")

	locker, rdb, err := ProvideLocker(c.config, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize locker: %w", err)
	}
	c.locker = locker
	c.redisClient = rdb
	c.logger.Info("Document locker initialized",
		zap.Bool("redis", rdb != nil))

	c.dispatcher = dispatcher.NewDispatcher(
		dispatcher.WithLogger(&sugaredLoggerAdapter{sugar: c.logger.Sugar()}),
	)

	services, err := ProvideServices(c.config, c.repositories, c.externals, c.dispatcher, c.locker, c.db, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Services returns the application services. Nil before Start.
func (c *Container) Services() *ServiceBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services
}

// Repositories returns the repository bundle. Nil before Start.
func (c *Container) Repositories() *RepositoryBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repositories
}

// Dispatcher returns the status-change dispatcher so the embedding system
// can subscribe notification handlers. Nil before Start.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

// TransactionManager returns the database transaction manager. Nil before Start.
func (c *Container) TransactionManager() *sqlite.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.redisClient != nil {
		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			status.Components["redis"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["redis"] = ComponentHealth{Healthy: true}
		}
	}

	if c.services != nil {
		status.Components["services"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["services"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// sugaredLoggerAdapter adapts *zap.SugaredLogger to the dispatcher.Logger
// interface, whose Info/Error signatures match Infow/Errorw.
type sugaredLoggerAdapter struct {
	sugar *zap.SugaredLogger
}

func (a *sugaredLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.sugar.Infow(msg, keysAndValues...)
}

func (a *sugaredLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.sugar.Errorw(msg, keysAndValues...)
}
