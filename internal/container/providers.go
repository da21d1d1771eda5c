// Package container provides dependency injection and lifecycle management
// for the document lifecycle engine following Clean Architecture principles.
package container

import (
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/application/service"
	"github.com/flowbooks/docflow/internal/config"
	"github.com/flowbooks/docflow/internal/infrastructure/lock"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/repository"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
	"github.com/flowbooks/docflow/pkg/database"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, runs pending migrations and wraps the
// connection in a transaction manager.
func ProvideDatabase(cfg *config.Database, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.Run(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: sqlite.NewDB(sqlDB, logger),
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
		Definition:      repository.NewDefinitionRepository(sqlDB, logger),
		Instance:        repository.NewInstanceRepository(sqlDB, logger),
		Snapshot:        repository.NewSnapshotRepository(sqlDB, logger),
		DimensionConfig: repository.NewDimensionConfigRepository(sqlDB, logger),
		Audit:           repository.NewAuditRepository(sqlDB, logger),
	}, nil
}

// ProvideLocker selects the document locker implementation. With a Redis
// address configured, locks are held cross-process via redislock; otherwise
// an in-process keyed mutex serializes documents within this process only.
func ProvideLocker(cfg *config.Config, logger *zap.Logger) (port.DocumentLocker, *redis.Client, error) {
	if cfg.Redis.Address == "" {
		return lock.NewKeyedMutexLocker(), nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	locker := lock.NewRedisLocker(rdb, cfg.Lock.RetryInterval, cfg.Lock.MaxWait, logger)
	return locker, rdb, nil
}

// ProvideServices wires all application services.
func ProvideServices(
	cfg *config.Config,
	repos *RepositoryBundle,
	externals Externals,
	publisher port.EventPublisher,
	locker port.DocumentLocker,
	txm port.TransactionManager,
	logger *zap.Logger,
) (*ServiceBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if txm == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if externals.OrgUnits == nil {
		return nil, fmt.Errorf("org unit lookup is required")
	}
	if externals.Delegates == nil {
		return nil, fmt.Errorf("delegate lookup is required")
	}

	validate := validator.New()

	workflowSvc := service.NewWorkflowService(
		repos.Definition,
		validate,
		service.WorkflowCacheConfig{
			Size: cfg.Matcher.CacheSize,
			TTL:  cfg.Matcher.CacheTTL,
		},
		logger,
	)
	statusSvc := service.NewStatusService(repos.Snapshot, publisher, logger)
	resolver := service.NewApproverResolver(externals.OrgUnits, externals.Delegates, logger)
	progressionSvc := service.NewProgressionService(
		repos.Instance,
		repos.Definition,
		repos.Audit,
		resolver,
		statusSvc,
		locker,
		txm,
		cfg.Lock.TTL,
		logger,
	)
	dimensionSvc := service.NewDimensionService(repos.DimensionConfig, logger)

	return &ServiceBundle{
		Workflow:    workflowSvc,
		Status:      statusSvc,
		Resolver:    resolver,
		Progression: progressionSvc,
		Dimension:   dimensionSvc,
	}, nil
}
