package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/workflow"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
)

// DefinitionRepository implements port.DefinitionRepository on SQLite.
// Amount bounds are stored as decimal strings to avoid float drift.
type DefinitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDefinitionRepository creates a new definition repository
func NewDefinitionRepository(db *sql.DB, logger *zap.Logger) port.DefinitionRepository {
	return &DefinitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a definition with its steps and approver specs.
func (r *DefinitionRepository) Create(ctx context.Context, def *workflow.Definition) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	conditions, err := json.Marshal(def.MatchConditions)
	if err != nil {
		return fmt.Errorf("marshal match conditions: %w", err)
	}

	now := time.Now()
	def.CreatedAt = now
	def.UpdatedAt = now

	query := `
		INSERT INTO workflow_definitions (
			id, tenant_id, name, match_amount_min, match_amount_max,
			match_conditions, priority, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = ex.ExecContext(ctx, query,
		def.ID,
		def.TenantID,
		def.Name,
		decimalPtr(def.MatchAmountMin),
		decimalPtr(def.MatchAmountMax),
		string(conditions),
		def.Priority,
		def.IsActive,
		def.CreatedAt,
		def.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create definition", zap.Error(err))
		return fmt.Errorf("failed to create definition: %w", err)
	}

	return r.insertSteps(ctx, def)
}

// Update rewrites a definition and replaces its steps.
func (r *DefinitionRepository) Update(ctx context.Context, def *workflow.Definition) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	conditions, err := json.Marshal(def.MatchConditions)
	if err != nil {
		return fmt.Errorf("marshal match conditions: %w", err)
	}

	def.UpdatedAt = time.Now()
	query := `
		UPDATE workflow_definitions
		SET name = ?, match_amount_min = ?, match_amount_max = ?,
			match_conditions = ?, priority = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`
	result, err := ex.ExecContext(ctx, query,
		def.Name,
		decimalPtr(def.MatchAmountMin),
		decimalPtr(def.MatchAmountMax),
		string(conditions),
		def.Priority,
		def.IsActive,
		def.UpdatedAt,
		def.ID,
		def.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", workflow.ErrDefinitionNotFound, def.ID)
	}

	if _, err := ex.ExecContext(ctx,
		`DELETE FROM step_approvers WHERE step_id IN (SELECT id FROM workflow_steps WHERE workflow_id = ?)`,
		def.ID); err != nil {
		return fmt.Errorf("failed to clear step approvers: %w", err)
	}
	if _, err := ex.ExecContext(ctx,
		`DELETE FROM workflow_steps WHERE workflow_id = ?`, def.ID); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}
	return r.insertSteps(ctx, def)
}

// GetByID retrieves a definition with steps, or nil when absent.
func (r *DefinitionRepository) GetByID(ctx context.Context, tenantID, id string) (*workflow.Definition, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, match_amount_min, match_amount_max,
			match_conditions, priority, is_active, created_at, updated_at
		FROM workflow_definitions
		WHERE id = ? AND tenant_id = ?
	`
	def, err := scanDefinition(ex.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get definition", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get definition: %w", err)
	}

	if err := r.loadSteps(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// ListActive returns a tenant's active definitions with steps loaded.
func (r *DefinitionRepository) ListActive(ctx context.Context, tenantID string) ([]*workflow.Definition, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, match_amount_min, match_amount_max,
			match_conditions, priority, is_active, created_at, updated_at
		FROM workflow_definitions
		WHERE tenant_id = ? AND is_active = 1
		ORDER BY priority DESC, created_at ASC
	`
	rows, err := ex.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	defer rows.Close()

	var defs []*workflow.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate definitions: %w", err)
	}

	for _, def := range defs {
		if err := r.loadSteps(ctx, def); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// Deactivate soft-deletes a definition.
func (r *DefinitionRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	result, err := ex.ExecContext(ctx,
		`UPDATE workflow_definitions SET is_active = 0, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		time.Now(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", workflow.ErrDefinitionNotFound, id)
	}
	return nil
}

func (r *DefinitionRepository) insertSteps(ctx context.Context, def *workflow.Definition) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	for i := range def.Steps {
		step := &def.Steps[i]
		_, err := ex.ExecContext(ctx, `
			INSERT INTO workflow_steps (
				id, workflow_id, step_order, name, require_all_approvers, min_approvers
			) VALUES (?, ?, ?, ?, ?, ?)`,
			step.ID, def.ID, step.StepOrder, step.Name, step.RequireAllApprovers, step.MinApprovers,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.StepOrder, err)
		}

		for j := range step.Approvers {
			spec := &step.Approvers[j]
			_, err := ex.ExecContext(ctx, `
				INSERT INTO step_approvers (
					id, step_id, approver_type, approver_value, organization_unit_id, can_delegate
				) VALUES (?, ?, ?, ?, ?, ?)`,
				spec.ID, step.ID, spec.Type.String(), spec.Value, spec.OrganizationUnitID, spec.CanDelegate,
			)
			if err != nil {
				return fmt.Errorf("failed to insert approver spec: %w", err)
			}
		}
	}
	return nil
}

func (r *DefinitionRepository) loadSteps(ctx context.Context, def *workflow.Definition) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, workflow_id, step_order, name, require_all_approvers, min_approvers
		FROM workflow_steps
		WHERE workflow_id = ?
		ORDER BY step_order ASC`, def.ID)
	if err != nil {
		return fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	def.Steps = nil
	for rows.Next() {
		var step workflow.Step
		if err := rows.Scan(&step.ID, &step.WorkflowID, &step.StepOrder,
			&step.Name, &step.RequireAllApprovers, &step.MinApprovers); err != nil {
			return fmt.Errorf("failed to scan step: %w", err)
		}
		def.Steps = append(def.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate steps: %w", err)
	}

	for i := range def.Steps {
		if err := r.loadApprovers(ctx, &def.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefinitionRepository) loadApprovers(ctx context.Context, step *workflow.Step) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := ex.QueryContext(ctx, `
		SELECT id, step_id, approver_type, approver_value, organization_unit_id, can_delegate
		FROM step_approvers
		WHERE step_id = ?
		ORDER BY id ASC`, step.ID)
	if err != nil {
		return fmt.Errorf("failed to load approver specs: %w", err)
	}
	defer rows.Close()

	step.Approvers = nil
	for rows.Next() {
		var spec workflow.StepApprover
		var approverType string
		var orgUnit sql.NullString
		if err := rows.Scan(&spec.ID, &spec.StepID, &approverType,
			&spec.Value, &orgUnit, &spec.CanDelegate); err != nil {
			return fmt.Errorf("failed to scan approver spec: %w", err)
		}
		spec.Type = workflow.ApproverType(approverType)
		if orgUnit.Valid {
			spec.OrganizationUnitID = &orgUnit.String
		}
		step.Approvers = append(step.Approvers, spec)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDefinition(row rowScanner) (*workflow.Definition, error) {
	var def workflow.Definition
	var minStr, maxStr sql.NullString
	var conditions string

	err := row.Scan(
		&def.ID,
		&def.TenantID,
		&def.Name,
		&minStr,
		&maxStr,
		&conditions,
		&def.Priority,
		&def.IsActive,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if minStr.Valid {
		v, err := decimal.NewFromString(minStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse match_amount_min: %w", err)
		}
		def.MatchAmountMin = &v
	}
	if maxStr.Valid {
		v, err := decimal.NewFromString(maxStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse match_amount_max: %w", err)
		}
		def.MatchAmountMax = &v
	}
	if conditions != "" {
		if err := json.Unmarshal([]byte(conditions), &def.MatchConditions); err != nil {
			return nil, fmt.Errorf("unmarshal match conditions: %w", err)
		}
	}
	return &def, nil
}

func decimalPtr(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
