package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// WorkflowService manages workflow definitions and selects the applicable
// definition for a document.
type WorkflowService interface {
	CreateDefinition(ctx context.Context, def *workflow.Definition) (*workflow.Definition, error)
	UpdateDefinition(ctx context.Context, def *workflow.Definition) error
	DeactivateDefinition(ctx context.Context, tenantID, id string) error
	GetDefinition(ctx context.Context, tenantID, id string) (*workflow.Definition, error)

	// MatchWorkflow returns the single applicable definition for the
	// document attributes, or nil when no definition matches. A nil result
	// means no approval is required; it is not an error.
	MatchWorkflow(ctx context.Context, tenantID string, amount decimal.Decimal, conditions map[string]string) (*workflow.Definition, error)
}

// matchEntry caches a match outcome, including "no match".
type matchEntry struct {
	def *workflow.Definition
}

type workflowServiceImpl struct {
	repo     port.DefinitionRepository
	validate *validator.Validate
	logger   *zap.Logger

	// Matched results are cached briefly; definitions change infrequently.
	// Per-tenant generations make definition writes invalidate the tenant's
	// cached matches without scanning the LRU.
	cache   *expirable.LRU[string, matchEntry]
	genMu   sync.Mutex
	tenGens map[string]uint64
}

// WorkflowCacheConfig sizes the matcher cache.
type WorkflowCacheConfig struct {
	Size int
	TTL  time.Duration
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	repo port.DefinitionRepository,
	validate *validator.Validate,
	cacheCfg WorkflowCacheConfig,
	logger *zap.Logger,
) WorkflowService {
	if cacheCfg.Size <= 0 {
		cacheCfg.Size = 1024
	}
	if cacheCfg.TTL <= 0 {
		cacheCfg.TTL = 30 * time.Second
	}
	return &workflowServiceImpl{
		repo:     repo,
		validate: validate,
		logger:   logger,
		cache:    expirable.NewLRU[string, matchEntry](cacheCfg.Size, nil, cacheCfg.TTL),
		tenGens:  make(map[string]uint64),
	}
}

// CreateDefinition validates and persists a new definition.
func (s *workflowServiceImpl) CreateDefinition(ctx context.Context, def *workflow.Definition) (*workflow.Definition, error) {
	if err := s.validateDefinition(def); err != nil {
		return nil, err
	}

	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.ID == "" {
			step.ID = uuid.NewString()
		}
		step.WorkflowID = def.ID
		for j := range step.Approvers {
			if step.Approvers[j].ID == "" {
				step.Approvers[j].ID = uuid.NewString()
			}
			step.Approvers[j].StepID = step.ID
		}
	}
	def.IsActive = true

	if err := s.repo.Create(ctx, def); err != nil {
		s.logger.Error("Failed to create workflow definition",
			zap.String("tenant_id", def.TenantID), zap.Error(err))
		return nil, fmt.Errorf("create definition: %w", err)
	}

	s.bumpTenant(def.TenantID)
	s.logger.Info("Workflow definition created",
		zap.String("tenant_id", def.TenantID),
		zap.String("definition_id", def.ID),
		zap.Int("steps", len(def.Steps)))
	return def, nil
}

// UpdateDefinition validates and persists changes to an existing definition.
func (s *workflowServiceImpl) UpdateDefinition(ctx context.Context, def *workflow.Definition) error {
	if def.ID == "" {
		return fmt.Errorf("%w: definition id is required", workflow.ErrValidation)
	}
	if err := s.validateDefinition(def); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, def); err != nil {
		return fmt.Errorf("update definition: %w", err)
	}
	s.bumpTenant(def.TenantID)
	s.logger.Info("Workflow definition updated",
		zap.String("tenant_id", def.TenantID), zap.String("definition_id", def.ID))
	return nil
}

// DeactivateDefinition soft-deletes a definition.
func (s *workflowServiceImpl) DeactivateDefinition(ctx context.Context, tenantID, id string) error {
	if err := s.repo.Deactivate(ctx, tenantID, id); err != nil {
		return fmt.Errorf("deactivate definition: %w", err)
	}
	s.bumpTenant(tenantID)
	s.logger.Info("Workflow definition deactivated",
		zap.String("tenant_id", tenantID), zap.String("definition_id", id))
	return nil
}

// GetDefinition loads one definition with steps.
func (s *workflowServiceImpl) GetDefinition(ctx context.Context, tenantID, id string) (*workflow.Definition, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// MatchWorkflow filters the tenant's active definitions by amount bounds and
// condition equality, then breaks ties deterministically: highest priority,
// then narrowest amount range (unbounded counts as infinitely wide), then
// earliest CreatedAt, then lowest ID.
func (s *workflowServiceImpl) MatchWorkflow(
	ctx context.Context,
	tenantID string,
	amount decimal.Decimal,
	conditions map[string]string,
) (*workflow.Definition, error) {
	key := s.cacheKey(tenantID, amount, conditions)
	if entry, ok := s.cache.Get(key); ok {
		return entry.def, nil
	}

	defs, err := s.repo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active definitions: %w", err)
	}

	var candidates []*workflow.Definition
	for _, def := range defs {
		if def.Matches(amount, conditions) {
			candidates = append(candidates, def)
		}
	}

	var matched *workflow.Definition
	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(a, b int) bool {
			return definitionLess(candidates[a], candidates[b])
		})
		matched = candidates[0]
	}

	s.cache.Add(key, matchEntry{def: matched})
	return matched, nil
}

// validateDefinition combines struct-tag validation with the structural
// invariants in Definition.Validate.
func (s *workflowServiceImpl) validateDefinition(def *workflow.Definition) error {
	if err := s.validate.Struct(def); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrValidation, err)
	}
	return def.Validate()
}

// definitionLess orders candidate definitions best-first.
func definitionLess(a, b *workflow.Definition) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	wa, wb := a.AmountRangeWidth(), b.AmountRangeWidth()
	switch {
	case wa != nil && wb == nil:
		return true
	case wa == nil && wb != nil:
		return false
	case wa != nil && wb != nil && !wa.Equal(*wb):
		return wa.LessThan(*wb)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// cacheKey folds the tenant generation in, so definition writes invalidate
// the tenant's cached matches.
func (s *workflowServiceImpl) cacheKey(tenantID string, amount decimal.Decimal, conditions map[string]string) string {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(tenantID)
	sb.WriteByte('|')
	fmt.Fprintf(&sb, "g%d", s.tenantGen(tenantID))
	sb.WriteByte('|')
	sb.WriteString(amount.String())
	for _, k := range keys {
		sb.WriteByte('|')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(conditions[k])
	}
	return sb.String()
}

func (s *workflowServiceImpl) tenantGen(tenantID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.tenGens[tenantID]
}

func (s *workflowServiceImpl) bumpTenant(tenantID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.tenGens[tenantID]++
}
