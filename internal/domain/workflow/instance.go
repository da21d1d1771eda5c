package workflow

import (
	"fmt"
	"time"
)

// InstanceState is the lifecycle state of one approval instance.
type InstanceState string

const (
	InstanceInProgress InstanceState = "IN_PROGRESS"
	InstanceApproved   InstanceState = "APPROVED"
	InstanceRejected   InstanceState = "REJECTED"
	InstanceCancelled  InstanceState = "CANCELLED"
)

var validInstanceStates = map[InstanceState]bool{
	InstanceInProgress: true,
	InstanceApproved:   true,
	InstanceRejected:   true,
	InstanceCancelled:  true,
}

var terminalInstanceStates = map[InstanceState]bool{
	InstanceApproved:  true,
	InstanceRejected:  true,
	InstanceCancelled: true,
}

// String returns the string representation of the state
func (s InstanceState) String() string { return string(s) }

// IsValid returns true if the state is a defined instance state
func (s InstanceState) IsValid() bool { return validInstanceStates[s] }

// IsTerminal returns true if the state admits no further decisions
func (s InstanceState) IsTerminal() bool { return terminalInstanceStates[s] }

// DecisionKind is the outcome an approver records for a step.
type DecisionKind string

const (
	DecisionApproved DecisionKind = "APPROVED"
	DecisionRejected DecisionKind = "REJECTED"
)

// IsValid returns true if the value is a defined decision kind
func (k DecisionKind) IsValid() bool {
	return k == DecisionApproved || k == DecisionRejected
}

// Decision is one recorded approver action on an instance step.
type Decision struct {
	ID             string       `json:"id"`
	StepOrder      int          `json:"step_order"`
	ApproverUserID string       `json:"approver_user_id"`
	Decision       DecisionKind `json:"decision"`
	Reason         string       `json:"reason,omitempty"`
	DecidedAt      time.Time    `json:"decided_at"`
}

// ResolvedApprovers is the concrete expansion of a step's approver specs.
// Quorum counts principals; Actors maps every identity allowed to act (each
// principal plus their delegate, when delegation is enabled) back to the
// principal the action counts for.
type ResolvedApprovers struct {
	Principals map[string]bool
	Actors     map[string]string
}

// NewResolvedApprovers returns an empty resolution result.
func NewResolvedApprovers() ResolvedApprovers {
	return ResolvedApprovers{
		Principals: make(map[string]bool),
		Actors:     make(map[string]string),
	}
}

// AddPrincipal registers a resolved approver acting for themselves.
func (r ResolvedApprovers) AddPrincipal(userID string) {
	r.Principals[userID] = true
	if _, taken := r.Actors[userID]; !taken {
		r.Actors[userID] = userID
	}
}

// AddDelegate lets delegateID act on behalf of principalID. A user who is an
// approver in their own right keeps acting for themselves.
func (r ResolvedApprovers) AddDelegate(principalID, delegateID string) {
	if _, taken := r.Actors[delegateID]; !taken {
		r.Actors[delegateID] = principalID
	}
}

// PrincipalFor returns the approver an acting identity counts for.
func (r ResolvedApprovers) PrincipalFor(userID string) (string, bool) {
	p, ok := r.Actors[userID]
	return p, ok
}

// Instance is the runtime walk of one document through a matched workflow.
// At most one instance is open per document at a time.
type Instance struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenant_id"`
	DocumentID       string        `json:"document_id"`
	WorkflowID       string        `json:"workflow_id"`
	CurrentStepOrder int           `json:"current_step_order"`
	State            InstanceState `json:"state"`
	Decisions        []Decision    `json:"decisions"`
	Version          int64         `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// NewInstance opens an approval walk at step 1.
func NewInstance(id, tenantID, documentID, workflowID string, now time.Time) *Instance {
	return &Instance{
		ID:               id,
		TenantID:         tenantID,
		DocumentID:       documentID,
		WorkflowID:       workflowID,
		CurrentStepOrder: 1,
		State:            InstanceInProgress,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// decisionBy returns the decision a principal (or their delegate) already
// recorded for a step, resolving acting users through the approver set.
func (i *Instance) decisionBy(stepOrder int, principalID string, resolved ResolvedApprovers) *Decision {
	for idx := range i.Decisions {
		d := &i.Decisions[idx]
		if d.StepOrder != stepOrder {
			continue
		}
		p, ok := resolved.PrincipalFor(d.ApproverUserID)
		if !ok {
			p = d.ApproverUserID
		}
		if p == principalID {
			return d
		}
	}
	return nil
}

// approvalsForStep returns the distinct principals that approved a step.
func (i *Instance) approvalsForStep(stepOrder int, resolved ResolvedApprovers) map[string]bool {
	approved := make(map[string]bool)
	for idx := range i.Decisions {
		d := &i.Decisions[idx]
		if d.StepOrder != stepOrder || d.Decision != DecisionApproved {
			continue
		}
		p, ok := resolved.PrincipalFor(d.ApproverUserID)
		if !ok {
			p = d.ApproverUserID
		}
		approved[p] = true
	}
	return approved
}

// stepSatisfied evaluates the step's quorum policy against recorded approvals.
func (i *Instance) stepSatisfied(step *Step, resolved ResolvedApprovers) bool {
	approved := i.approvalsForStep(step.StepOrder, resolved)
	if step.RequireAllApprovers {
		if len(resolved.Principals) == 0 {
			return false
		}
		for p := range resolved.Principals {
			if !approved[p] {
				return false
			}
		}
		return true
	}
	return len(approved) >= step.MinApprovers
}

// ApplyDecision validates and folds one approver decision into the instance.
// It returns true when the instance reached a terminal state as a result.
// Replaying an identical decision after success is a no-op (false, nil);
// any other violation leaves the instance untouched.
//
// Rejection by any eligible approver closes the instance immediately,
// regardless of the step's quorum mode.
func (i *Instance) ApplyDecision(
	def *Definition,
	stepOrder int,
	userID string,
	kind DecisionKind,
	reason string,
	resolved ResolvedApprovers,
	decisionID string,
	now time.Time,
) (terminal bool, err error) {
	if !kind.IsValid() {
		return false, fmt.Errorf("%w: unknown decision %q", ErrValidation, kind)
	}
	if stepOrder < 1 || stepOrder > def.LastStepOrder() {
		return false, fmt.Errorf("%w: step %d out of range", ErrValidation, stepOrder)
	}
	if i.State.IsTerminal() {
		// Exact replay of the decision that closed the instance stays
		// idempotent; anything else is rejected.
		if prior := i.exactReplay(stepOrder, userID, kind); prior {
			return true, nil
		}
		return false, fmt.Errorf("%w: state %s", ErrInstanceClosed, i.State)
	}
	if stepOrder != i.CurrentStepOrder {
		// Redelivery of a decision that already satisfied an earlier step's
		// quorum and advanced the walk stays idempotent.
		if stepOrder < i.CurrentStepOrder && i.exactReplay(stepOrder, userID, kind) {
			return false, nil
		}
		return false, fmt.Errorf("%w: got %d, current is %d", ErrInvalidStep, stepOrder, i.CurrentStepOrder)
	}

	principal, ok := resolved.PrincipalFor(userID)
	if !ok {
		return false, fmt.Errorf("%w: user %s, step %d", ErrUnauthorizedApprover, userID, stepOrder)
	}

	if prior := i.decisionBy(stepOrder, principal, resolved); prior != nil {
		if prior.ApproverUserID == userID && prior.Decision == kind {
			// At-least-once delivery tolerance.
			return i.State.IsTerminal(), nil
		}
		return false, fmt.Errorf("%w: user %s, step %d", ErrAlreadyDecided, principal, stepOrder)
	}

	i.Decisions = append(i.Decisions, Decision{
		ID:             decisionID,
		StepOrder:      stepOrder,
		ApproverUserID: userID,
		Decision:       kind,
		Reason:         reason,
		DecidedAt:      now,
	})
	i.UpdatedAt = now

	if kind == DecisionRejected {
		i.State = InstanceRejected
		i.CompletedAt = &now
		return true, nil
	}

	step := def.StepAt(stepOrder)
	if step == nil {
		return false, fmt.Errorf("%w: step %d not found in workflow %s", ErrValidation, stepOrder, def.ID)
	}
	if !i.stepSatisfied(step, resolved) {
		return false, nil
	}

	if stepOrder >= def.LastStepOrder() {
		i.State = InstanceApproved
		i.CompletedAt = &now
		return true, nil
	}
	i.CurrentStepOrder = stepOrder + 1
	return false, nil
}

// Cancel force-transitions the instance to Cancelled outside the normal
// decision path. Cancelling an already-cancelled instance is a no-op;
// cancelling an otherwise closed instance fails.
func (i *Instance) Cancel(now time.Time) error {
	if i.State == InstanceCancelled {
		return nil
	}
	if i.State.IsTerminal() {
		return fmt.Errorf("%w: state %s", ErrInstanceClosed, i.State)
	}
	i.State = InstanceCancelled
	i.CompletedAt = &now
	i.UpdatedAt = now
	return nil
}

// exactReplay reports whether a decision identical to (stepOrder, userID,
// kind) was already recorded.
func (i *Instance) exactReplay(stepOrder int, userID string, kind DecisionKind) bool {
	for idx := range i.Decisions {
		d := &i.Decisions[idx]
		if d.StepOrder == stepOrder && d.ApproverUserID == userID && d.Decision == kind {
			return true
		}
	}
	return false
}
