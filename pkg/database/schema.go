package database

// schemaMigrations is the ordered, embedded migration set. New schema changes
// append a new entry; existing entries are never edited once released.
var schemaMigrations = []Migration{
	{
		Version: 1,
		Name:    "workflow_definitions",
		SQL: `
			CREATE TABLE IF NOT EXISTS workflow_definitions (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				match_amount_min TEXT,
				match_amount_max TEXT,
				match_conditions TEXT NOT NULL DEFAULT '{}',
				priority INTEGER NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_workflow_definitions_tenant_active
				ON workflow_definitions(tenant_id, is_active);

			CREATE TABLE IF NOT EXISTS workflow_steps (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflow_definitions(id),
				step_order INTEGER NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				require_all_approvers BOOLEAN NOT NULL DEFAULT 0,
				min_approvers INTEGER NOT NULL DEFAULT 1,
				UNIQUE (workflow_id, step_order)
			);

			CREATE TABLE IF NOT EXISTS step_approvers (
				id TEXT PRIMARY KEY,
				step_id TEXT NOT NULL REFERENCES workflow_steps(id),
				approver_type TEXT NOT NULL,
				approver_value TEXT NOT NULL,
				organization_unit_id TEXT,
				can_delegate BOOLEAN NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_step_approvers_step
				ON step_approvers(step_id);
		`,
	},
	{
		Version: 2,
		Name:    "approval_instances",
		SQL: `
			CREATE TABLE IF NOT EXISTS approval_instances (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL REFERENCES workflow_definitions(id),
				current_step_order INTEGER NOT NULL,
				state TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				completed_at DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_approval_instances_document
				ON approval_instances(document_id, state);
			CREATE INDEX IF NOT EXISTS idx_approval_instances_tenant_state
				ON approval_instances(tenant_id, state);

			CREATE TABLE IF NOT EXISTS approval_decisions (
				id TEXT PRIMARY KEY,
				instance_id TEXT NOT NULL REFERENCES approval_instances(id),
				step_order INTEGER NOT NULL,
				approver_user_id TEXT NOT NULL,
				decision TEXT NOT NULL,
				reason TEXT,
				decided_at DATETIME NOT NULL,
				UNIQUE (instance_id, step_order, approver_user_id)
			);
		`,
	},
	{
		Version: 3,
		Name:    "status_snapshots",
		SQL: `
			CREATE TABLE IF NOT EXISTS status_snapshots (
				document_id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				general TEXT NOT NULL,
				ocr TEXT NOT NULL,
				allocation TEXT NOT NULL,
				approval TEXT NOT NULL,
				delivery TEXT NOT NULL,
				payment TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 1,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_status_snapshots_tenant
				ON status_snapshots(tenant_id);
		`,
	},
	{
		Version: 4,
		Name:    "dimension_configurations",
		SQL: `
			CREATE TABLE IF NOT EXISTS dimension_configurations (
				tenant_id TEXT NOT NULL,
				dimension_type TEXT NOT NULL,
				is_enabled BOOLEAN NOT NULL DEFAULT 1,
				display_order INTEGER,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (tenant_id, dimension_type)
			);
		`,
	},
	{
		Version: 5,
		Name:    "approval_audit",
		SQL: `
			CREATE TABLE IF NOT EXISTS approval_audit (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				instance_id TEXT,
				action TEXT NOT NULL,
				performed_by TEXT NOT NULL DEFAULT '',
				detail TEXT,
				performed_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_approval_audit_document
				ON approval_audit(tenant_id, document_id, performed_at);
		`,
	},
}
