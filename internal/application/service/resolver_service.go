package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flowbooks/docflow/internal/application/port"
	"github.com/flowbooks/docflow/internal/domain/workflow"
)

// DocumentContext carries the document attributes approver resolution needs.
type DocumentContext struct {
	TenantID   string
	DocumentID string

	// HomeOrgUnitID is the document's home organizational unit, used when a
	// UnitRole spec has no explicit unit scope.
	HomeOrgUnitID string
}

// ApproverResolver expands abstract approver specs into concrete user sets.
type ApproverResolver interface {
	// Resolve expands one spec. A spec that matches nobody yields an empty
	// result, not an error; a failed lookup propagates as
	// workflow.ErrLookupUnavailable so the caller can retry.
	Resolve(ctx context.Context, spec workflow.StepApprover, doc DocumentContext) (workflow.ResolvedApprovers, error)

	// ResolveStep expands every spec on a step into one combined set.
	ResolveStep(ctx context.Context, step *workflow.Step, doc DocumentContext) (workflow.ResolvedApprovers, error)
}

type approverResolverImpl struct {
	orgUnits  port.OrgUnitLookup
	delegates port.DelegateLookup
	logger    *zap.Logger
}

// NewApproverResolver creates a new ApproverResolver
func NewApproverResolver(
	orgUnits port.OrgUnitLookup,
	delegates port.DelegateLookup,
	logger *zap.Logger,
) ApproverResolver {
	return &approverResolverImpl{
		orgUnits:  orgUnits,
		delegates: delegates,
		logger:    logger,
	}
}

// Resolve expands one approver spec.
func (r *approverResolverImpl) Resolve(
	ctx context.Context,
	spec workflow.StepApprover,
	doc DocumentContext,
) (workflow.ResolvedApprovers, error) {
	resolved := workflow.NewResolvedApprovers()

	var users []string
	switch spec.Type {
	case workflow.ApproverUser:
		users = []string{spec.Value}

	case workflow.ApproverUnitRole:
		unitID := doc.HomeOrgUnitID
		if spec.OrganizationUnitID != nil {
			unitID = *spec.OrganizationUnitID
		}
		found, err := r.orgUnits.UsersWithRole(ctx, unitID, spec.Value)
		if err != nil {
			return resolved, fmt.Errorf("%w: role %q in unit %s: %v",
				workflow.ErrLookupUnavailable, spec.Value, unitID, err)
		}
		users = found

	case workflow.ApproverSystemPermission:
		found, err := r.orgUnits.UsersWithPermission(ctx, doc.TenantID, spec.Value, spec.OrganizationUnitID)
		if err != nil {
			return resolved, fmt.Errorf("%w: permission %q: %v",
				workflow.ErrLookupUnavailable, spec.Value, err)
		}
		users = found

	default:
		return resolved, fmt.Errorf("%w: unknown approver type %q", workflow.ErrValidation, spec.Type)
	}

	for _, userID := range users {
		if userID == "" {
			continue
		}
		resolved.AddPrincipal(userID)
	}

	if len(resolved.Principals) == 0 {
		// Surfaced, not hidden: the step can never be satisfied by this
		// spec alone.
		r.logger.Warn("Approver spec resolved to zero users",
			zap.String("tenant_id", doc.TenantID),
			zap.String("document_id", doc.DocumentID),
			zap.String("approver_type", spec.Type.String()),
			zap.String("approver_value", spec.Value))
		return resolved, nil
	}

	if spec.CanDelegate {
		for principal := range resolved.Principals {
			delegate, err := r.delegates.DelegateFor(ctx, principal)
			if err != nil {
				return workflow.NewResolvedApprovers(), fmt.Errorf("%w: delegate for %s: %v",
					workflow.ErrLookupUnavailable, principal, err)
			}
			if delegate != "" {
				resolved.AddDelegate(principal, delegate)
			}
		}
	}

	return resolved, nil
}

// ResolveStep expands every spec on a step into one combined set.
func (r *approverResolverImpl) ResolveStep(
	ctx context.Context,
	step *workflow.Step,
	doc DocumentContext,
) (workflow.ResolvedApprovers, error) {
	combined := workflow.NewResolvedApprovers()
	for _, spec := range step.Approvers {
		resolved, err := r.Resolve(ctx, spec, doc)
		if err != nil {
			return workflow.NewResolvedApprovers(), err
		}
		for principal := range resolved.Principals {
			combined.AddPrincipal(principal)
		}
		for actor, principal := range resolved.Actors {
			if actor != principal {
				combined.AddDelegate(principal, actor)
			}
		}
	}
	return combined, nil
}
