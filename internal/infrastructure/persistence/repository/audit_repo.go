package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository on SQLite. Entries are
// append-only; there is no update or delete path.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one immutable audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *port.AuditEntry) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO approval_audit (
			id, tenant_id, document_id, instance_id, action,
			performed_by, detail, performed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = ex.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.DocumentID, entry.InstanceID,
		entry.Action, entry.PerformedBy, string(detail), entry.PerformedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListByDocument returns a document's audit trail, oldest first.
func (r *AuditRepository) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*port.AuditEntry, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT id, tenant_id, document_id, instance_id, action,
			performed_by, detail, performed_at
		FROM approval_audit
		WHERE tenant_id = ? AND document_id = ?
		ORDER BY performed_at ASC, id ASC
	`
	rows, err := ex.QueryContext(ctx, query, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*port.AuditEntry
	for rows.Next() {
		var entry port.AuditEntry
		var detail string
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.DocumentID,
			&entry.InstanceID, &entry.Action, &entry.PerformedBy,
			&detail, &entry.PerformedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if detail != "" && detail != "null" {
			if err := json.Unmarshal([]byte(detail), &entry.Detail); err != nil {
				r.logger.Warn("Malformed audit detail", zap.String("id", entry.ID), zap.Error(err))
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
