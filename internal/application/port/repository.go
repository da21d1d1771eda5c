package port

import (
	"context"
	"time"

	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// DefinitionRepository defines persistence operations for workflow
// definitions and their steps/approver specs. Definitions are read-mostly.
type DefinitionRepository interface {
	Create(ctx context.Context, def *workflow.Definition) error
	Update(ctx context.Context, def *workflow.Definition) error
	GetByID(ctx context.Context, tenantID, id string) (*workflow.Definition, error)
	// ListActive returns a tenant's active definitions with steps loaded.
	ListActive(ctx context.Context, tenantID string) ([]*workflow.Definition, error)
	// Deactivate soft-deletes a definition. Historical instances keep
	// referencing it; rows are never hard-deleted.
	Deactivate(ctx context.Context, tenantID, id string) error
}

// InstanceRepository defines persistence operations for approval instances.
// Update uses optimistic concurrency and fails with
// workflow.ErrVersionConflict when the stored version moved.
type InstanceRepository interface {
	Create(ctx context.Context, instance *workflow.Instance) error
	GetByID(ctx context.Context, id string) (*workflow.Instance, error)
	// GetOpenByDocumentID returns the in-progress instance for a document,
	// or nil when none is open.
	GetOpenByDocumentID(ctx context.Context, documentID string) (*workflow.Instance, error)
	Update(ctx context.Context, instance *workflow.Instance) error
	// ListOpenByTenant returns all in-progress instances for a tenant.
	ListOpenByTenant(ctx context.Context, tenantID string) ([]*workflow.Instance, error)
}

// SnapshotRepository defines persistence operations for status snapshots.
// Save is an upsert guarded by the snapshot version; a stale write fails
// with workflow.ErrVersionConflict.
type SnapshotRepository interface {
	Get(ctx context.Context, documentID string) (*status.Snapshot, error)
	Save(ctx context.Context, snapshot *status.Snapshot) error
}

// DimensionConfigRepository defines persistence operations for allocation
// dimension visibility settings.
type DimensionConfigRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*status.DimensionConfiguration, error)
	Upsert(ctx context.Context, cfg *status.DimensionConfiguration) error
}

// AuditEntry is one immutable record of a progression or status action.
type AuditEntry struct {
	ID          string
	TenantID    string
	DocumentID  string
	InstanceID  string
	Action      string
	PerformedBy string
	Detail      map[string]interface{}
	PerformedAt time.Time
}

// AuditRepository appends immutable progression audit entries. Append
// failures are logged by callers and never fail the triggering action.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]*AuditEntry, error)
}

// TransactionManager runs a function within a database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
