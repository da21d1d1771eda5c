package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
)

// DimensionConfigRepository implements port.DimensionConfigRepository on SQLite.
type DimensionConfigRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDimensionConfigRepository creates a new dimension config repository
func NewDimensionConfigRepository(db *sql.DB, logger *zap.Logger) port.DimensionConfigRepository {
	return &DimensionConfigRepository{
		db:     db,
		logger: logger,
	}
}

// ListByTenant returns every stored dimension setting for a tenant.
func (r *DimensionConfigRepository) ListByTenant(ctx context.Context, tenantID string) ([]*status.DimensionConfiguration, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT tenant_id, dimension_type, is_enabled, display_order, updated_at
		FROM dimension_configurations
		WHERE tenant_id = ?
	`
	rows, err := ex.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dimension configs: %w", err)
	}
	defer rows.Close()

	var configs []*status.DimensionConfiguration
	for rows.Next() {
		var cfg status.DimensionConfiguration
		var dimension string
		var order sql.NullInt64
		if err := rows.Scan(&cfg.TenantID, &dimension, &cfg.IsEnabled, &order, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dimension config: %w", err)
		}
		cfg.Dimension = status.DimensionType(dimension)
		if order.Valid {
			v := int(order.Int64)
			cfg.DisplayOrder = &v
		}
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}

// Upsert stores one dimension setting.
func (r *DimensionConfigRepository) Upsert(ctx context.Context, cfg *status.DimensionConfiguration) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	var order interface{}
	if cfg.DisplayOrder != nil {
		order = *cfg.DisplayOrder
	}

	query := `
		INSERT INTO dimension_configurations (
			tenant_id, dimension_type, is_enabled, display_order, updated_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, dimension_type) DO UPDATE SET
			is_enabled = excluded.is_enabled,
			display_order = excluded.display_order,
			updated_at = excluded.updated_at
	`
	_, err := ex.ExecContext(ctx, query,
		cfg.TenantID, cfg.Dimension.String(), cfg.IsEnabled, order, cfg.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert dimension config",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("dimension", cfg.Dimension.String()),
			zap.Error(err))
		return fmt.Errorf("failed to upsert dimension config: %w", err)
	}
	return nil
}
