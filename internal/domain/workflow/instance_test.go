package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedFor(users ...string) ResolvedApprovers {
	r := NewResolvedApprovers()
	for _, u := range users {
		r.AddPrincipal(u)
	}
	return r
}

func twoStepDefinition() *Definition {
	return &Definition{
		ID:       "wf-1",
		TenantID: "t1",
		Name:     "two stage",
		Steps: []Step{
			{
				StepOrder:    1,
				Name:         "managers",
				MinApprovers: 2,
				Approvers: []StepApprover{
					{Type: ApproverUnitRole, Value: "MANAGER"},
				},
			},
			{
				StepOrder:    2,
				Name:         "cfo",
				MinApprovers: 1,
				Approvers: []StepApprover{
					{Type: ApproverUser, Value: "u-cfo"},
				},
			},
		},
	}
}

func TestInstance_ApplyDecision_QuorumAdvances(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)
	managers := resolvedFor("u-a", "u-b", "u-c")

	terminal, err := inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, 1, inst.CurrentStepOrder, "one of two approvals must not advance")

	terminal, err = inst.ApplyDecision(def, 1, "u-b", DecisionApproved, "", managers, "d-2", now)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, 2, inst.CurrentStepOrder, "quorum reached, step advances")

	cfo := resolvedFor("u-cfo")
	terminal, err = inst.ApplyDecision(def, 2, "u-cfo", DecisionApproved, "", cfo, "d-3", now)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, InstanceApproved, inst.State)
	require.NotNil(t, inst.CompletedAt)
}

func TestInstance_ApplyDecision_RequireAllApprovers(t *testing.T) {
	def := twoStepDefinition()
	def.Steps[0].RequireAllApprovers = true
	def.Steps[0].MinApprovers = 1 // ignored in unanimous mode
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)
	managers := resolvedFor("u-a", "u-b")

	_, err := inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, inst.CurrentStepOrder)

	_, err = inst.ApplyDecision(def, 1, "u-b", DecisionApproved, "", managers, "d-2", now)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.CurrentStepOrder)
}

func TestInstance_ApplyDecision_AnyRejectionCloses(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)
	managers := resolvedFor("u-a", "u-b", "u-c")

	_, err := inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)

	terminal, err := inst.ApplyDecision(def, 1, "u-b", DecisionRejected, "missing receipt", managers, "d-2", now)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Equal(t, InstanceRejected, inst.State)

	// Further decisions fail, but the exact closing decision replays cleanly.
	_, err = inst.ApplyDecision(def, 1, "u-c", DecisionApproved, "", managers, "d-3", now)
	assert.ErrorIs(t, err, ErrInstanceClosed)

	terminal, err = inst.ApplyDecision(def, 1, "u-b", DecisionRejected, "missing receipt", managers, "d-2", now)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Len(t, inst.Decisions, 2, "replay must not duplicate the decision")
}

func TestInstance_ApplyDecision_Validation(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)
	managers := resolvedFor("u-a", "u-b")

	_, err := inst.ApplyDecision(def, 1, "u-a", DecisionKind("SHRUG"), "", managers, "d-1", now)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = inst.ApplyDecision(def, 9, "u-a", DecisionApproved, "", managers, "d-1", now)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = inst.ApplyDecision(def, 2, "u-cfo", DecisionApproved, "", resolvedFor("u-cfo"), "d-1", now)
	assert.ErrorIs(t, err, ErrInvalidStep, "step 2 is not current yet")

	_, err = inst.ApplyDecision(def, 1, "u-intruder", DecisionApproved, "", managers, "d-1", now)
	assert.ErrorIs(t, err, ErrUnauthorizedApprover)

	// Same user flipping their decision is a conflict, not a replay.
	_, err = inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)
	_, err = inst.ApplyDecision(def, 1, "u-a", DecisionRejected, "", managers, "d-2", now)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestInstance_ApplyDecision_ReplayBeforeTerminal(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)
	managers := resolvedFor("u-a", "u-b", "u-c")

	_, err := inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)

	terminal, err := inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1b", now)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Len(t, inst.Decisions, 1)
	assert.Equal(t, 1, inst.CurrentStepOrder)
}

func TestInstance_ApplyDecision_ReplayAfterStepAdvance(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)
	managers := resolvedFor("u-a", "u-b", "u-c")

	_, err := inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)
	_, err = inst.ApplyDecision(def, 1, "u-b", DecisionApproved, "", managers, "d-2", now)
	require.NoError(t, err)
	require.Equal(t, 2, inst.CurrentStepOrder, "quorum met, walk advanced")

	// Redelivery of the quorum-completing decision stays a no-op even though
	// the step is no longer current.
	terminal, err := inst.ApplyDecision(def, 1, "u-b", DecisionApproved, "", managers, "d-2b", now)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Len(t, inst.Decisions, 2)
	assert.Equal(t, 2, inst.CurrentStepOrder)

	// A fresh decision on the passed step is still rejected.
	_, err = inst.ApplyDecision(def, 1, "u-c", DecisionApproved, "", managers, "d-3", now)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestInstance_ApplyDecision_DelegateCountsForPrincipal(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)

	managers := resolvedFor("u-a", "u-b")
	managers.AddDelegate("u-a", "u-deputy")

	// The delegate's approval counts for u-a.
	_, err := inst.ApplyDecision(def, 1, "u-deputy", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, inst.CurrentStepOrder)

	// The principal can no longer decide the same step.
	_, err = inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-2", now)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	// The second principal completes the quorum.
	_, err = inst.ApplyDecision(def, 1, "u-b", DecisionApproved, "", managers, "d-3", now)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.CurrentStepOrder)
}

func TestInstance_ApplyDecision_DelegateKeepsOwnSeat(t *testing.T) {
	def := twoStepDefinition()
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)

	// u-b is both an approver in their own right and u-a's delegate; their
	// single decision counts for themselves, not for u-a.
	managers := resolvedFor("u-a", "u-b")
	managers.AddDelegate("u-a", "u-b")

	_, err := inst.ApplyDecision(def, 1, "u-b", DecisionApproved, "", managers, "d-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, inst.CurrentStepOrder, "u-a has not approved yet")

	_, err = inst.ApplyDecision(def, 1, "u-a", DecisionApproved, "", managers, "d-2", now)
	require.NoError(t, err)
	assert.Equal(t, 2, inst.CurrentStepOrder)
}

func TestInstance_Cancel(t *testing.T) {
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", "wf-1", now)

	require.NoError(t, inst.Cancel(now))
	assert.Equal(t, InstanceCancelled, inst.State)
	require.NotNil(t, inst.CompletedAt)

	// Idempotent.
	require.NoError(t, inst.Cancel(now.Add(time.Minute)))

	closed := NewInstance("inst-2", "t1", "doc-2", "wf-1", now)
	closed.State = InstanceApproved
	assert.ErrorIs(t, closed.Cancel(now), ErrInstanceClosed)
}

func TestInstance_RequireAll_EmptyResolutionNeverSatisfies(t *testing.T) {
	def := twoStepDefinition()
	def.Steps[0].RequireAllApprovers = true
	now := time.Now()
	inst := NewInstance("inst-1", "t1", "doc-1", def.ID, now)

	empty := NewResolvedApprovers()
	assert.False(t, inst.stepSatisfied(&def.Steps[0], empty))
}
