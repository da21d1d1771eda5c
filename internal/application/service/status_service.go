package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// StatusService applies external lifecycle events to document snapshots.
type StatusService interface {
	// ApplyEvent folds one event into the document's snapshot, persists the
	// new revision and publishes the change. Returns the resulting snapshot.
	ApplyEvent(ctx context.Context, tenantID, documentID string, e status.Event) (*status.Snapshot, error)

	// GetSnapshot returns the current snapshot, creating an initial one for
	// an unknown document.
	GetSnapshot(ctx context.Context, tenantID, documentID string) (*status.Snapshot, error)
}

type statusServiceImpl struct {
	snapshots port.SnapshotRepository
	publisher port.EventPublisher
	logger    *zap.Logger
}

// NewStatusService creates a new StatusService
func NewStatusService(
	snapshots port.SnapshotRepository,
	publisher port.EventPublisher,
	logger *zap.Logger,
) StatusService {
	return &statusServiceImpl{
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger,
	}
}

// ApplyEvent loads, applies, saves and publishes. A stale save is retried
// once against a re-read snapshot; concurrent writers are expected under
// at-least-once event delivery.
func (s *statusServiceImpl) ApplyEvent(
	ctx context.Context,
	tenantID, documentID string,
	e status.Event,
) (*status.Snapshot, error) {
	if !e.Kind.IsValid() {
		return nil, fmt.Errorf("%w: kind %q", status.ErrInvalidEvent, e.Kind)
	}

	snapshot, err := s.applyOnce(ctx, tenantID, documentID, e)
	if errors.Is(err, workflow.ErrVersionConflict) {
		s.logger.Debug("Snapshot version conflict, retrying",
			zap.String("document_id", documentID), zap.String("event", e.Kind.String()))
		snapshot, err = s.applyOnce(ctx, tenantID, documentID, e)
	}
	if err != nil {
		return nil, err
	}

	change := port.StatusChange{
		TenantID:   tenantID,
		DocumentID: documentID,
		Event:      e.Kind,
		Snapshot:   *snapshot,
		OccurredAt: time.Now(),
	}
	if pubErr := s.publisher.Publish(ctx, change); pubErr != nil {
		// Notification delivery is best-effort; the state change stands.
		s.logger.Warn("Failed to publish status change",
			zap.String("document_id", documentID),
			zap.String("event", e.Kind.String()),
			zap.Error(pubErr))
	}

	return snapshot, nil
}

// GetSnapshot returns the stored snapshot or an initial one.
func (s *statusServiceImpl) GetSnapshot(ctx context.Context, tenantID, documentID string) (*status.Snapshot, error) {
	snapshot, err := s.snapshots.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if snapshot == nil {
		initial := status.NewSnapshot(tenantID, documentID, false)
		return &initial, nil
	}
	return snapshot, nil
}

func (s *statusServiceImpl) applyOnce(
	ctx context.Context,
	tenantID, documentID string,
	e status.Event,
) (*status.Snapshot, error) {
	current, err := s.GetSnapshot(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	next := status.Apply(*current, e)
	if next == *current {
		// No-op events are legal and not persisted.
		return current, nil
	}

	next.UpdatedAt = time.Now()
	if err := s.snapshots.Save(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Info("Snapshot updated",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", documentID),
		zap.String("event", e.Kind.String()),
		zap.String("general", next.General.String()),
		zap.Bool("needs_attention", next.NeedsAttention()))
	return &next, nil
}
