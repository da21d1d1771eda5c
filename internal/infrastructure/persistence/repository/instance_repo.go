package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/workflow"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
)

// InstanceRepository implements port.InstanceRepository on SQLite with
// optimistic concurrency on the version column.
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a fresh instance at version 1.
func (r *InstanceRepository) Create(ctx context.Context, instance *workflow.Instance) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	instance.Version = 1
	query := `
		INSERT INTO approval_instances (
			id, tenant_id, document_id, workflow_id, current_step_order,
			state, version, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ex.ExecContext(ctx, query,
		instance.ID,
		instance.TenantID,
		instance.DocumentID,
		instance.WorkflowID,
		instance.CurrentStepOrder,
		instance.State.String(),
		instance.Version,
		instance.CreatedAt,
		instance.UpdatedAt,
		instance.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create instance", zap.Error(err))
		return fmt.Errorf("failed to create instance: %w", err)
	}
	return nil
}

// GetByID retrieves an instance with its decisions, or nil when absent.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*workflow.Instance, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, tenant_id, document_id, workflow_id, current_step_order,
			state, version, created_at, updated_at, completed_at
		FROM approval_instances
		WHERE id = ?
	`
	instance, err := scanInstance(ex.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get instance", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	if err := r.loadDecisions(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// GetOpenByDocumentID returns the in-progress instance for a document, or nil.
func (r *InstanceRepository) GetOpenByDocumentID(ctx context.Context, documentID string) (*workflow.Instance, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, tenant_id, document_id, workflow_id, current_step_order,
			state, version, created_at, updated_at, completed_at
		FROM approval_instances
		WHERE document_id = ? AND state = ?
	`
	instance, err := scanInstance(ex.QueryRowContext(ctx, query, documentID, workflow.InstanceInProgress.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open instance: %w", err)
	}

	if err := r.loadDecisions(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Update persists instance state and appends any new decisions. The write is
// guarded by the version the instance was read at; a stale write fails with
// workflow.ErrVersionConflict.
func (r *InstanceRepository) Update(ctx context.Context, instance *workflow.Instance) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	readVersion := instance.Version
	query := `
		UPDATE approval_instances
		SET current_step_order = ?, state = ?, version = version + 1,
			updated_at = ?, completed_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := ex.ExecContext(ctx, query,
		instance.CurrentStepOrder,
		instance.State.String(),
		instance.UpdatedAt,
		instance.CompletedAt,
		instance.ID,
		readVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update instance", zap.String("id", instance.ID), zap.Error(err))
		return fmt.Errorf("failed to update instance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: instance %s at version %d", workflow.ErrVersionConflict, instance.ID, readVersion)
	}
	instance.Version = readVersion + 1

	// Decisions are append-only; INSERT OR IGNORE keeps replays harmless.
	for i := range instance.Decisions {
		d := &instance.Decisions[i]
		_, err := ex.ExecContext(ctx, `
			INSERT OR IGNORE INTO approval_decisions (
				id, instance_id, step_order, approver_user_id, decision, reason, decided_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.ID, instance.ID, d.StepOrder, d.ApproverUserID, d.Decision, d.Reason, d.DecidedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert decision: %w", err)
		}
	}
	return nil
}

// ListOpenByTenant returns all in-progress instances for a tenant.
func (r *InstanceRepository) ListOpenByTenant(ctx context.Context, tenantID string) ([]*workflow.Instance, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, tenant_id, document_id, workflow_id, current_step_order,
			state, version, created_at, updated_at, completed_at
		FROM approval_instances
		WHERE tenant_id = ? AND state = ?
		ORDER BY created_at ASC
	`
	rows, err := ex.QueryContext(ctx, query, tenantID, workflow.InstanceInProgress.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list open instances: %w", err)
	}
	defer rows.Close()

	var instances []*workflow.Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}

	for _, instance := range instances {
		if err := r.loadDecisions(ctx, instance); err != nil {
			return nil, err
		}
	}
	return instances, nil
}

func (r *InstanceRepository) loadDecisions(ctx context.Context, instance *workflow.Instance) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, step_order, approver_user_id, decision, reason, decided_at
		FROM approval_decisions
		WHERE instance_id = ?
		ORDER BY decided_at ASC, id ASC`, instance.ID)
	if err != nil {
		return fmt.Errorf("failed to load decisions: %w", err)
	}
	defer rows.Close()

	instance.Decisions = nil
	for rows.Next() {
		var d workflow.Decision
		var kind string
		var reason sql.NullString
		if err := rows.Scan(&d.ID, &d.StepOrder, &d.ApproverUserID, &kind, &reason, &d.DecidedAt); err != nil {
			return fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Decision = workflow.DecisionKind(kind)
		if reason.Valid {
			d.Reason = reason.String
		}
		instance.Decisions = append(instance.Decisions, d)
	}
	return rows.Err()
}

func scanInstance(row rowScanner) (*workflow.Instance, error) {
	var instance workflow.Instance
	var state string
	var completedAt sql.NullTime

	err := row.Scan(
		&instance.ID,
		&instance.TenantID,
		&instance.DocumentID,
		&instance.WorkflowID,
		&instance.CurrentStepOrder,
		&state,
		&instance.Version,
		&instance.CreatedAt,
		&instance.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	instance.State = workflow.InstanceState(state)
	if completedAt.Valid {
		t := completedAt.Time
		instance.CompletedAt = &t
	}
	return &instance, nil
}
