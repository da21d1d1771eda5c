package service

import (
	"context"
	"time"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// Mock repositories and ports, function-field style.

type mockDefinitionRepo struct {
	createFunc     func(ctx context.Context, def *workflow.Definition) error
	updateFunc     func(ctx context.Context, def *workflow.Definition) error
	getByIDFunc    func(ctx context.Context, tenantID, id string) (*workflow.Definition, error)
	listActiveFunc func(ctx context.Context, tenantID string) ([]*workflow.Definition, error)
	deactivateFunc func(ctx context.Context, tenantID, id string) error
}

func (m *mockDefinitionRepo) Create(ctx context.Context, def *workflow.Definition) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, def)
	}
	return nil
}

func (m *mockDefinitionRepo) Update(ctx context.Context, def *workflow.Definition) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, def)
	}
	return nil
}

func (m *mockDefinitionRepo) GetByID(ctx context.Context, tenantID, id string) (*workflow.Definition, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, tenantID, id)
	}
	return nil, nil
}

func (m *mockDefinitionRepo) ListActive(ctx context.Context, tenantID string) ([]*workflow.Definition, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockDefinitionRepo) Deactivate(ctx context.Context, tenantID, id string) error {
	if m.deactivateFunc != nil {
		return m.deactivateFunc(ctx, tenantID, id)
	}
	return nil
}

type mockInstanceRepo struct {
	createFunc           func(ctx context.Context, instance *workflow.Instance) error
	getByIDFunc          func(ctx context.Context, id string) (*workflow.Instance, error)
	getOpenByDocFunc     func(ctx context.Context, documentID string) (*workflow.Instance, error)
	updateFunc           func(ctx context.Context, instance *workflow.Instance) error
	listOpenByTenantFunc func(ctx context.Context, tenantID string) ([]*workflow.Instance, error)
}

func (m *mockInstanceRepo) Create(ctx context.Context, instance *workflow.Instance) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, instance)
	}
	return nil
}

func (m *mockInstanceRepo) GetByID(ctx context.Context, id string) (*workflow.Instance, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockInstanceRepo) GetOpenByDocumentID(ctx context.Context, documentID string) (*workflow.Instance, error) {
	if m.getOpenByDocFunc != nil {
		return m.getOpenByDocFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockInstanceRepo) Update(ctx context.Context, instance *workflow.Instance) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, instance)
	}
	return nil
}

func (m *mockInstanceRepo) ListOpenByTenant(ctx context.Context, tenantID string) ([]*workflow.Instance, error) {
	if m.listOpenByTenantFunc != nil {
		return m.listOpenByTenantFunc(ctx, tenantID)
	}
	return nil, nil
}

type mockSnapshotRepo struct {
	getFunc  func(ctx context.Context, documentID string) (*status.Snapshot, error)
	saveFunc func(ctx context.Context, snapshot *status.Snapshot) error
}

func (m *mockSnapshotRepo) Get(ctx context.Context, documentID string) (*status.Snapshot, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, documentID)
	}
	return nil, nil
}

func (m *mockSnapshotRepo) Save(ctx context.Context, snapshot *status.Snapshot) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, snapshot)
	}
	return nil
}

type mockDimensionConfigRepo struct {
	listByTenantFunc func(ctx context.Context, tenantID string) ([]*status.DimensionConfiguration, error)
	upsertFunc       func(ctx context.Context, cfg *status.DimensionConfiguration) error
}

func (m *mockDimensionConfigRepo) ListByTenant(ctx context.Context, tenantID string) ([]*status.DimensionConfiguration, error) {
	if m.listByTenantFunc != nil {
		return m.listByTenantFunc(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockDimensionConfigRepo) Upsert(ctx context.Context, cfg *status.DimensionConfiguration) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, cfg)
	}
	return nil
}

type mockAuditRepo struct {
	appendFunc func(ctx context.Context, entry *port.AuditEntry) error
	entries    []*port.AuditEntry
}

func (m *mockAuditRepo) Append(ctx context.Context, entry *port.AuditEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, entry)
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*port.AuditEntry, error) {
	return m.entries, nil
}

type mockOrgUnitLookup struct {
	usersWithRoleFunc       func(ctx context.Context, orgUnitID, roleLevel string) ([]string, error)
	usersWithPermissionFunc func(ctx context.Context, tenantID, permission string, orgUnitID *string) ([]string, error)
}

func (m *mockOrgUnitLookup) UsersWithRole(ctx context.Context, orgUnitID, roleLevel string) ([]string, error) {
	if m.usersWithRoleFunc != nil {
		return m.usersWithRoleFunc(ctx, orgUnitID, roleLevel)
	}
	return nil, nil
}

func (m *mockOrgUnitLookup) UsersWithPermission(ctx context.Context, tenantID, permission string, orgUnitID *string) ([]string, error) {
	if m.usersWithPermissionFunc != nil {
		return m.usersWithPermissionFunc(ctx, tenantID, permission, orgUnitID)
	}
	return nil, nil
}

type mockDelegateLookup struct {
	delegateForFunc func(ctx context.Context, userID string) (string, error)
}

func (m *mockDelegateLookup) DelegateFor(ctx context.Context, userID string) (string, error) {
	if m.delegateForFunc != nil {
		return m.delegateForFunc(ctx, userID)
	}
	return "", nil
}

type mockPublisher struct {
	publishFunc func(ctx context.Context, change port.StatusChange) error
	published   []port.StatusChange
}

func (m *mockPublisher) Publish(ctx context.Context, change port.StatusChange) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, change)
	}
	m.published = append(m.published, change)
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	calls               int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLockHandle struct {
	releaseFunc func(ctx context.Context) error
}

func (m *mockLockHandle) Release(ctx context.Context) error {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx)
	}
	return nil
}

type mockLocker struct {
	acquireFunc func(ctx context.Context, documentID string, ttl time.Duration) (port.LockHandle, error)
	acquired    []string
}

func (m *mockLocker) Acquire(ctx context.Context, documentID string, ttl time.Duration) (port.LockHandle, error) {
	m.acquired = append(m.acquired, documentID)
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, documentID, ttl)
	}
	return &mockLockHandle{}, nil
}
