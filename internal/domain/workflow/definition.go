package workflow

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApproverType classifies what an abstract approver spec points at.
type ApproverType string

const (
	ApproverUser             ApproverType = "USER"
	ApproverUnitRole         ApproverType = "UNIT_ROLE"
	ApproverSystemPermission ApproverType = "SYSTEM_PERMISSION"
)

// String returns the string representation of the approver type
func (t ApproverType) String() string { return string(t) }

// IsValid returns true if the value is a defined approver type
func (t ApproverType) IsValid() bool {
	switch t {
	case ApproverUser, ApproverUnitRole, ApproverSystemPermission:
		return true
	default:
		return false
	}
}

// StepApprover is an abstract "who may approve" spec attached to a step.
// It is resolved to concrete user identities at decision time.
type StepApprover struct {
	ID     string       `json:"id"`
	StepID string       `json:"step_id"`
	Type   ApproverType `json:"approver_type" validate:"required"`

	// Value is a user id, a role-level string, or a permission name,
	// depending on Type.
	Value string `json:"approver_value" validate:"required"`

	// OrganizationUnitID scopes UnitRole and SystemPermission specs to a
	// subtree; nil means the document's home unit (UnitRole) or the whole
	// tenant (SystemPermission).
	OrganizationUnitID *string `json:"organization_unit_id,omitempty"`

	// CanDelegate additionally admits each resolved user's designated
	// delegate, so either can act.
	CanDelegate bool `json:"can_delegate"`
}

// Step is one ordered approval stage within a definition.
type Step struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`

	// StepOrder is 1-based and contiguous within a definition.
	StepOrder int    `json:"step_order" validate:"min=1"`
	Name      string `json:"name" validate:"required"`

	// RequireAllApprovers switches quorum from N-of-M to unanimous; when set,
	// MinApprovers is ignored.
	RequireAllApprovers bool           `json:"require_all_approvers"`
	MinApprovers        int            `json:"min_approvers" validate:"min=1"`
	Approvers           []StepApprover `json:"approvers" validate:"min=1,dive"`
}

// Definition is one tenant-owned approval workflow configuration.
// Definitions are soft-deleted via IsActive; historical instances keep
// referencing them.
type Definition struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id" validate:"required"`
	Name     string `json:"name" validate:"required"`

	// MatchAmountMin/Max are inclusive bounds; nil means unbounded.
	MatchAmountMin *decimal.Decimal `json:"match_amount_min,omitempty"`
	MatchAmountMax *decimal.Decimal `json:"match_amount_max,omitempty"`

	// MatchConditions is a key=value equality map evaluated against the
	// document's classification tags. Missing keys are wildcards.
	MatchConditions map[string]string `json:"match_conditions,omitempty"`

	Priority  int       `json:"priority"`
	IsActive  bool      `json:"is_active"`
	Steps     []Step    `json:"steps" validate:"min=1,dive"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether this definition applies to a document with the
// given amount and classification tags. Bounds are inclusive; every
// configured condition key must be present with an equal value.
func (d *Definition) Matches(amount decimal.Decimal, conditions map[string]string) bool {
	if d.MatchAmountMin != nil && amount.LessThan(*d.MatchAmountMin) {
		return false
	}
	if d.MatchAmountMax != nil && amount.GreaterThan(*d.MatchAmountMax) {
		return false
	}
	for key, want := range d.MatchConditions {
		got, ok := conditions[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// AmountRangeWidth returns max−min for specificity tie-breaking. Any
// unbounded side makes the range infinitely wide (nil result).
func (d *Definition) AmountRangeWidth() *decimal.Decimal {
	if d.MatchAmountMin == nil || d.MatchAmountMax == nil {
		return nil
	}
	width := d.MatchAmountMax.Sub(*d.MatchAmountMin)
	return &width
}

// StepAt returns the step with the given 1-based order, or nil.
func (d *Definition) StepAt(order int) *Step {
	for i := range d.Steps {
		if d.Steps[i].StepOrder == order {
			return &d.Steps[i]
		}
	}
	return nil
}

// LastStepOrder returns the highest step order in the definition.
func (d *Definition) LastStepOrder() int {
	last := 0
	for i := range d.Steps {
		if d.Steps[i].StepOrder > last {
			last = d.Steps[i].StepOrder
		}
	}
	return last
}

// Validate enforces the structural invariants that struct tags cannot
// express: contiguous 1-based step orders, sane amount bounds, and
// well-formed approver specs.
func (d *Definition) Validate() error {
	if d.MatchAmountMin != nil && d.MatchAmountMax != nil &&
		d.MatchAmountMax.LessThan(*d.MatchAmountMin) {
		return fmt.Errorf("%w: match_amount_max below match_amount_min", ErrValidation)
	}

	seen := make(map[int]bool, len(d.Steps))
	for i := range d.Steps {
		step := &d.Steps[i]
		if seen[step.StepOrder] {
			return fmt.Errorf("%w: duplicate step order %d", ErrValidation, step.StepOrder)
		}
		seen[step.StepOrder] = true

		for j := range step.Approvers {
			if !step.Approvers[j].Type.IsValid() {
				return fmt.Errorf("%w: unknown approver type %q", ErrValidation, step.Approvers[j].Type)
			}
		}
	}
	for order := 1; order <= len(d.Steps); order++ {
		if !seen[order] {
			return fmt.Errorf("%w: step orders must be contiguous from 1, missing %d", ErrValidation, order)
		}
	}
	return nil
}
