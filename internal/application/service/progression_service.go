package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/status"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// ProgressionService drives documents through matched approval workflows.
type ProgressionService interface {
	// StartApproval opens an approval instance at step 1 and moves the
	// document's approval axis to Pending. Re-starting the same workflow for
	// a document with an open instance returns that instance unchanged.
	StartApproval(ctx context.Context, doc DocumentContext, workflowID string) (*workflow.Instance, error)

	// RecordDecision serializes per document, validates the decision against
	// the current step's resolved approvers, evaluates quorum and advances
	// or finalizes the instance. Identical replays are no-ops.
	RecordDecision(ctx context.Context, instanceID string, stepOrder int, userID string, decision workflow.DecisionKind, reason string) (*workflow.Instance, error)

	// CancelApproval force-transitions an open instance to Cancelled.
	// Cancelling twice is a no-op.
	CancelApproval(ctx context.Context, instanceID, byUserID string) (*workflow.Instance, error)

	GetInstance(ctx context.Context, instanceID string) (*workflow.Instance, error)

	// PendingForApprover returns the open instances whose current step the
	// user can act on right now.
	PendingForApprover(ctx context.Context, tenantID, userID string) ([]*workflow.Instance, error)

	// ApprovalHistory returns the audit trail for a document.
	ApprovalHistory(ctx context.Context, tenantID, documentID string) ([]*port.AuditEntry, error)
}

type progressionServiceImpl struct {
	instances   port.InstanceRepository
	definitions port.DefinitionRepository
	audit       port.AuditRepository
	resolver    ApproverResolver
	statuses    StatusService
	locker      port.DocumentLocker
	txm         port.TransactionManager
	lockTTL     time.Duration
	logger      *zap.Logger
}

// NewProgressionService creates a new ProgressionService
func NewProgressionService(
	instances port.InstanceRepository,
	definitions port.DefinitionRepository,
	audit port.AuditRepository,
	resolver ApproverResolver,
	statuses StatusService,
	locker port.DocumentLocker,
	txm port.TransactionManager,
	lockTTL time.Duration,
	logger *zap.Logger,
) ProgressionService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &progressionServiceImpl{
		instances:   instances,
		definitions: definitions,
		audit:       audit,
		resolver:    resolver,
		statuses:    statuses,
		locker:      locker,
		txm:         txm,
		lockTTL:     lockTTL,
		logger:      logger,
	}
}

// StartApproval opens the walk for a document.
func (s *progressionServiceImpl) StartApproval(
	ctx context.Context,
	doc DocumentContext,
	workflowID string,
) (*workflow.Instance, error) {
	def, err := s.definitions.GetByID(ctx, doc.TenantID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrDefinitionNotFound, workflowID)
	}

	lock, err := s.locker.Acquire(ctx, doc.DocumentID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire document lock: %w", err)
	}
	defer s.release(ctx, lock, doc.DocumentID)

	open, err := s.instances.GetOpenByDocumentID(ctx, doc.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("check open instance: %w", err)
	}
	if open != nil {
		if open.WorkflowID == workflowID {
			// At-least-once start events.
			return open, nil
		}
		return nil, fmt.Errorf("%w: document %s, instance %s",
			workflow.ErrInstanceAlreadyOpen, doc.DocumentID, open.ID)
	}

	instance := workflow.NewInstance(uuid.NewString(), doc.TenantID, doc.DocumentID, workflowID, time.Now())
	err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.instances.Create(ctx, instance); err != nil {
			return fmt.Errorf("create instance: %w", err)
		}
		s.appendAudit(ctx, &port.AuditEntry{
			TenantID:   doc.TenantID,
			DocumentID: doc.DocumentID,
			InstanceID: instance.ID,
			Action:     "approval.started",
			Detail: map[string]interface{}{
				"workflow_id": workflowID,
				"total_steps": def.LastStepOrder(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.statuses.ApplyEvent(ctx, doc.TenantID, doc.DocumentID, status.ApprovalRequiredEvent()); err != nil {
		s.logger.Warn("Failed to move approval axis to pending",
			zap.String("document_id", doc.DocumentID), zap.Error(err))
	}

	s.logger.Info("Approval instance started",
		zap.String("tenant_id", doc.TenantID),
		zap.String("document_id", doc.DocumentID),
		zap.String("instance_id", instance.ID),
		zap.String("workflow_id", workflowID))
	return instance, nil
}

// RecordDecision applies one approver decision under the document lock.
func (s *progressionServiceImpl) RecordDecision(
	ctx context.Context,
	instanceID string,
	stepOrder int,
	userID string,
	decision workflow.DecisionKind,
	reason string,
) (*workflow.Instance, error) {
	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrInstanceNotFound, instanceID)
	}

	lock, err := s.locker.Acquire(ctx, instance.DocumentID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire document lock: %w", err)
	}
	defer s.release(ctx, lock, instance.DocumentID)

	result, err := s.decideOnce(ctx, instanceID, stepOrder, userID, decision, reason)
	if errors.Is(err, workflow.ErrVersionConflict) {
		// A concurrent writer advanced the instance between our read and
		// write. Replay tolerance makes a single reapply safe.
		s.logger.Debug("Instance version conflict, retrying",
			zap.String("instance_id", instanceID), zap.String("user_id", userID))
		result, err = s.decideOnce(ctx, instanceID, stepOrder, userID, decision, reason)
	}
	return result, err
}

func (s *progressionServiceImpl) decideOnce(
	ctx context.Context,
	instanceID string,
	stepOrder int,
	userID string,
	decision workflow.DecisionKind,
	reason string,
) (*workflow.Instance, error) {
	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrInstanceNotFound, instanceID)
	}

	def, err := s.definitions.GetByID(ctx, instance.TenantID, instance.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrDefinitionNotFound, instance.WorkflowID)
	}

	doc := DocumentContext{TenantID: instance.TenantID, DocumentID: instance.DocumentID}
	var resolved workflow.ResolvedApprovers
	if step := def.StepAt(stepOrder); step != nil {
		resolved, err = s.resolver.ResolveStep(ctx, step, doc)
		if err != nil {
			// Lookup failure is retryable by the caller; never treat it as
			// an empty approver set.
			return nil, err
		}
	} else {
		resolved = workflow.NewResolvedApprovers()
	}

	stateBefore := instance.State
	decisionsBefore := len(instance.Decisions)
	terminal, err := instance.ApplyDecision(
		def, stepOrder, userID, decision, reason, resolved, uuid.NewString(), time.Now())
	if err != nil {
		return nil, err
	}

	if len(instance.Decisions) == decisionsBefore {
		// Idempotent replay; nothing to persist or announce.
		return instance, nil
	}

	// The version-guarded instance row and its decision rows commit or roll
	// back together.
	err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.instances.Update(ctx, instance); err != nil {
			return err
		}
		s.appendAudit(ctx, &port.AuditEntry{
			TenantID:    instance.TenantID,
			DocumentID:  instance.DocumentID,
			InstanceID:  instance.ID,
			Action:      "decision." + string(decision),
			PerformedBy: userID,
			Detail: map[string]interface{}{
				"step_order": stepOrder,
				"state":      instance.State.String(),
				"reason":     reason,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if terminal && stateBefore == workflow.InstanceInProgress {
		approved := instance.State == workflow.InstanceApproved
		if _, err := s.statuses.ApplyEvent(ctx, instance.TenantID, instance.DocumentID,
			status.ApprovalDecidedEvent(approved)); err != nil {
			s.logger.Warn("Failed to raise approval decision onto status axes",
				zap.String("instance_id", instance.ID), zap.Error(err))
		}
	}

	s.logger.Info("Decision recorded",
		zap.String("instance_id", instance.ID),
		zap.String("user_id", userID),
		zap.Int("step_order", stepOrder),
		zap.String("decision", string(decision)),
		zap.String("state", instance.State.String()))
	return instance, nil
}

// CancelApproval withdraws an open instance.
func (s *progressionServiceImpl) CancelApproval(ctx context.Context, instanceID, byUserID string) (*workflow.Instance, error) {
	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrInstanceNotFound, instanceID)
	}

	lock, err := s.locker.Acquire(ctx, instance.DocumentID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire document lock: %w", err)
	}
	defer s.release(ctx, lock, instance.DocumentID)

	instance, err = s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}

	wasCancelled := instance.State == workflow.InstanceCancelled
	if err := instance.Cancel(time.Now()); err != nil {
		return nil, err
	}
	if !wasCancelled {
		err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.instances.Update(ctx, instance); err != nil {
				return err
			}
			s.appendAudit(ctx, &port.AuditEntry{
				TenantID:    instance.TenantID,
				DocumentID:  instance.DocumentID,
				InstanceID:  instance.ID,
				Action:      "approval.cancelled",
				PerformedBy: byUserID,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}

		// Without the outcome event the approval axis would stay Pending
		// forever with no open instance behind it.
		if _, err := s.statuses.ApplyEvent(ctx, instance.TenantID, instance.DocumentID,
			status.ApprovalWithdrawnEvent()); err != nil {
			s.logger.Warn("Failed to clear approval axis after cancellation",
				zap.String("instance_id", instance.ID), zap.Error(err))
		}

		s.logger.Info("Approval instance cancelled",
			zap.String("instance_id", instance.ID), zap.String("by", byUserID))
	}
	return instance, nil
}

// GetInstance loads one instance by id.
func (s *progressionServiceImpl) GetInstance(ctx context.Context, instanceID string) (*workflow.Instance, error) {
	instance, err := s.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", workflow.ErrInstanceNotFound, instanceID)
	}
	return instance, nil
}

// PendingForApprover resolves each open instance's current step and keeps
// the ones the user can act on.
func (s *progressionServiceImpl) PendingForApprover(ctx context.Context, tenantID, userID string) ([]*workflow.Instance, error) {
	open, err := s.instances.ListOpenByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list open instances: %w", err)
	}

	var pending []*workflow.Instance
	for _, instance := range open {
		def, err := s.definitions.GetByID(ctx, tenantID, instance.WorkflowID)
		if err != nil || def == nil {
			continue
		}
		step := def.StepAt(instance.CurrentStepOrder)
		if step == nil {
			continue
		}
		doc := DocumentContext{TenantID: tenantID, DocumentID: instance.DocumentID}
		resolved, err := s.resolver.ResolveStep(ctx, step, doc)
		if err != nil {
			return nil, err
		}
		if _, ok := resolved.PrincipalFor(userID); ok {
			pending = append(pending, instance)
		}
	}
	return pending, nil
}

// ApprovalHistory returns the audit trail for a document.
func (s *progressionServiceImpl) ApprovalHistory(ctx context.Context, tenantID, documentID string) ([]*port.AuditEntry, error) {
	return s.audit.ListByDocument(ctx, tenantID, documentID)
}

// appendAudit writes an audit entry and logs a warning on failure.
func (s *progressionServiceImpl) appendAudit(ctx context.Context, entry *port.AuditEntry) {
	entry.ID = uuid.NewString()
	entry.PerformedAt = time.Now()
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append audit entry",
			zap.String("document_id", entry.DocumentID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

func (s *progressionServiceImpl) release(ctx context.Context, lock port.LockHandle, documentID string) {
	if err := lock.Release(ctx); err != nil {
		s.logger.Warn("Failed to release document lock",
			zap.String("document_id", documentID), zap.Error(err))
	}
}
