package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func singleStepDefinition() Definition {
	return Definition{
		ID:       "wf-1",
		TenantID: "t1",
		Name:     "standard approval",
		Steps: []Step{
			{
				StepOrder:    1,
				Name:         "manager",
				MinApprovers: 1,
				Approvers: []StepApprover{
					{Type: ApproverUser, Value: "u-manager"},
				},
			},
		},
	}
}

func TestDefinition_Matches_AmountBounds(t *testing.T) {
	tests := []struct {
		name   string
		min    *decimal.Decimal
		max    *decimal.Decimal
		amount string
		want   bool
	}{
		{"inside range", dec("100"), dec("1000"), "500", true},
		{"at lower bound", dec("100"), dec("1000"), "100", true},
		{"at upper bound", dec("100"), dec("1000"), "1000", true},
		{"below range", dec("100"), dec("1000"), "99.99", false},
		{"above range", dec("100"), dec("1000"), "1000.01", false},
		{"unbounded below", nil, dec("1000"), "-50", true},
		{"unbounded above", dec("100"), nil, "9999999", true},
		{"fully unbounded", nil, nil, "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := singleStepDefinition()
			def.MatchAmountMin = tt.min
			def.MatchAmountMax = tt.max
			got := def.Matches(decimal.RequireFromString(tt.amount), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefinition_Matches_Conditions(t *testing.T) {
	def := singleStepDefinition()
	def.MatchConditions = map[string]string{
		"document_type": "invoice",
		"cost_center":   "berlin",
	}
	amount := decimal.NewFromInt(100)

	assert.True(t, def.Matches(amount, map[string]string{
		"document_type": "invoice",
		"cost_center":   "berlin",
		"extra":         "ignored",
	}))

	assert.False(t, def.Matches(amount, map[string]string{
		"document_type": "invoice",
	}), "missing key must not match")

	assert.False(t, def.Matches(amount, map[string]string{
		"document_type": "invoice",
		"cost_center":   "munich",
	}), "unequal value must not match")

	// No conditions means every document matches.
	def.MatchConditions = nil
	assert.True(t, def.Matches(amount, nil))
}

func TestDefinition_AmountRangeWidth(t *testing.T) {
	def := singleStepDefinition()
	assert.Nil(t, def.AmountRangeWidth())

	def.MatchAmountMin = dec("100")
	assert.Nil(t, def.AmountRangeWidth())

	def.MatchAmountMax = dec("1000")
	width := def.AmountRangeWidth()
	require.NotNil(t, width)
	assert.True(t, width.Equal(decimal.NewFromInt(900)))
}

func TestDefinition_Validate(t *testing.T) {
	t.Run("valid multi step", func(t *testing.T) {
		def := singleStepDefinition()
		def.Steps = append(def.Steps, Step{
			StepOrder:    2,
			Name:         "finance",
			MinApprovers: 1,
			Approvers:    []StepApprover{{Type: ApproverUnitRole, Value: "FINANCE_LEAD"}},
		})
		assert.NoError(t, def.Validate())
	})

	t.Run("inverted amount bounds", func(t *testing.T) {
		def := singleStepDefinition()
		def.MatchAmountMin = dec("1000")
		def.MatchAmountMax = dec("100")
		assert.ErrorIs(t, def.Validate(), ErrValidation)
	})

	t.Run("duplicate step order", func(t *testing.T) {
		def := singleStepDefinition()
		def.Steps = append(def.Steps, def.Steps[0])
		assert.ErrorIs(t, def.Validate(), ErrValidation)
	})

	t.Run("gap in step orders", func(t *testing.T) {
		def := singleStepDefinition()
		def.Steps = append(def.Steps, Step{
			StepOrder:    3,
			Name:         "cfo",
			MinApprovers: 1,
			Approvers:    []StepApprover{{Type: ApproverUser, Value: "u-cfo"}},
		})
		assert.ErrorIs(t, def.Validate(), ErrValidation)
	})

	t.Run("unknown approver type", func(t *testing.T) {
		def := singleStepDefinition()
		def.Steps[0].Approvers[0].Type = ApproverType("ROBOT")
		assert.ErrorIs(t, def.Validate(), ErrValidation)
	})
}

func TestDefinition_StepAt(t *testing.T) {
	def := singleStepDefinition()
	def.Steps = append(def.Steps, Step{StepOrder: 2, Name: "finance", MinApprovers: 1})

	step := def.StepAt(2)
	require.NotNil(t, step)
	assert.Equal(t, "finance", step.Name)
	assert.Nil(t, def.StepAt(7))
	assert.Equal(t, 2, def.LastStepOrder())
}
