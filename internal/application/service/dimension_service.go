package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// DimensionService exposes tenant-scoped allocation dimension visibility.
type DimensionService interface {
	// EnabledDimensions returns the tenant's visible dimensions in display
	// order, with the implicit TransactionType dimension always first.
	EnabledDimensions(ctx context.Context, tenantID string) ([]status.DimensionType, error)

	// UpdateConfiguration enables/disables or reorders one configurable
	// dimension. Configuring TransactionType fails with ErrNotConfigurable.
	UpdateConfiguration(ctx context.Context, cfg *status.DimensionConfiguration) error
}

type dimensionServiceImpl struct {
	repo   port.DimensionConfigRepository
	logger *zap.Logger
}

// NewDimensionService creates a new DimensionService
func NewDimensionService(repo port.DimensionConfigRepository, logger *zap.Logger) DimensionService {
	return &dimensionServiceImpl{repo: repo, logger: logger}
}

// EnabledDimensions lists the tenant's visible dimensions.
func (s *dimensionServiceImpl) EnabledDimensions(ctx context.Context, tenantID string) ([]status.DimensionType, error) {
	configs, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list dimension configs: %w", err)
	}

	enabled := make([]*status.DimensionConfiguration, 0, len(configs))
	for _, cfg := range configs {
		if cfg.IsEnabled && cfg.Dimension.IsConfigurable() {
			enabled = append(enabled, cfg)
		}
	}
	sort.SliceStable(enabled, func(a, b int) bool {
		oa, ob := enabled[a].EffectiveOrder(), enabled[b].EffectiveOrder()
		if oa != ob {
			return oa < ob
		}
		return enabled[a].Dimension < enabled[b].Dimension
	})

	// The implicit dimension is synthesized, never stored.
	result := make([]status.DimensionType, 0, len(enabled)+1)
	result = append(result, status.DimensionTransactionType)
	for _, cfg := range enabled {
		result = append(result, cfg.Dimension)
	}
	return result, nil
}

// UpdateConfiguration persists one dimension setting.
func (s *dimensionServiceImpl) UpdateConfiguration(ctx context.Context, cfg *status.DimensionConfiguration) error {
	if cfg.Dimension == status.DimensionTransactionType {
		return fmt.Errorf("%w: %s is always visible", workflow.ErrNotConfigurable, cfg.Dimension)
	}
	if !cfg.Dimension.IsValid() {
		return fmt.Errorf("%w: unknown dimension %q", workflow.ErrValidation, cfg.Dimension)
	}
	if cfg.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", workflow.ErrValidation)
	}

	cfg.UpdatedAt = time.Now()
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("upsert dimension config: %w", err)
	}

	s.logger.Info("Dimension configuration updated",
		zap.String("tenant_id", cfg.TenantID),
		zap.String("dimension", cfg.Dimension.String()),
		zap.Bool("enabled", cfg.IsEnabled))
	return nil
}
