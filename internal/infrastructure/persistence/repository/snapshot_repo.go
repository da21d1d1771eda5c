package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/domain/workflow"
	"github.com/flowbooks/docflow/internal/infrastructure/persistence/sqlite"
)

// SnapshotRepository implements port.SnapshotRepository on SQLite. One row
// per document; writes are guarded by the version the snapshot was read at.
type SnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, logger *zap.Logger) port.SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the current snapshot for a document, or nil when absent.
func (r *SnapshotRepository) Get(ctx context.Context, documentID string) (*status.Snapshot, error) {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	query := `
		SELECT document_id, tenant_id, general, ocr, allocation, approval,
			delivery, payment, version, updated_at
		FROM status_snapshots
		WHERE document_id = ?
	`
	var s status.Snapshot
	var general, ocr, allocation, approval, delivery, payment string
	err := ex.QueryRowContext(ctx, query, documentID).Scan(
		&s.DocumentID,
		&s.TenantID,
		&general,
		&ocr,
		&allocation,
		&approval,
		&delivery,
		&payment,
		&s.Version,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get snapshot", zap.String("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	s.General = status.GeneralStatus(general)
	s.OCR = status.OCRStatus(ocr)
	s.Allocation = status.AllocationStatus(allocation)
	s.Approval = status.ApprovalStatus(approval)
	s.Delivery = status.DeliveryStatus(delivery)
	s.Payment = status.PaymentStatus(payment)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("stored snapshot for %s: %w", documentID, err)
	}
	return &s, nil
}

// Save upserts a snapshot revision. Version 0 inserts the first row; any
// later revision must match the stored version or the write fails with
// workflow.ErrVersionConflict.
func (r *SnapshotRepository) Save(ctx context.Context, s *status.Snapshot) error {
	ex := sqlite.ExecutorFrom(ctx, r.db)

	if s.Version == 0 {
		query := `
			INSERT INTO status_snapshots (
				document_id, tenant_id, general, ocr, allocation, approval,
				delivery, payment, version, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		`
		_, err := ex.ExecContext(ctx, query,
			s.DocumentID, s.TenantID,
			s.General.String(), s.OCR.String(), s.Allocation.String(),
			s.Approval.String(), s.Delivery.String(), s.Payment.String(),
			s.UpdatedAt,
		)
		if err != nil {
			// A concurrent initial write raced us on the primary key.
			return fmt.Errorf("%w: initial snapshot for %s: %v", workflow.ErrVersionConflict, s.DocumentID, err)
		}
		s.Version = 1
		return nil
	}

	readVersion := s.Version
	query := `
		UPDATE status_snapshots
		SET general = ?, ocr = ?, allocation = ?, approval = ?,
			delivery = ?, payment = ?, version = version + 1, updated_at = ?
		WHERE document_id = ? AND version = ?
	`
	result, err := ex.ExecContext(ctx, query,
		s.General.String(), s.OCR.String(), s.Allocation.String(),
		s.Approval.String(), s.Delivery.String(), s.Payment.String(),
		s.UpdatedAt,
		s.DocumentID,
		readVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save snapshot", zap.String("document_id", s.DocumentID), zap.Error(err))
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: snapshot %s at version %d", workflow.ErrVersionConflict, s.DocumentID, readVersion)
	}
	s.Version = readVersion + 1
	return nil
}
