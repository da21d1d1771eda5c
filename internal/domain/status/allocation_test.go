package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpenseAllocationStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from ExpenseAllocationStatus
		to   ExpenseAllocationStatus
		want bool
	}{
		{"pending to allocated", ExpenseAllocationPending, ExpenseAllocationAllocated, true},
		{"pending to rejected", ExpenseAllocationPending, ExpenseAllocationRejected, true},
		{"pending skips approval", ExpenseAllocationPending, ExpenseAllocationApproved, false},
		{"allocated to approved", ExpenseAllocationAllocated, ExpenseAllocationApproved, true},
		{"allocated to rejected", ExpenseAllocationAllocated, ExpenseAllocationRejected, true},
		{"allocated back to pending", ExpenseAllocationAllocated, ExpenseAllocationPending, false},
		{"approved is terminal", ExpenseAllocationApproved, ExpenseAllocationRejected, false},
		{"rejected is terminal", ExpenseAllocationRejected, ExpenseAllocationAllocated, false},
		{"no self transition from pending", ExpenseAllocationPending, ExpenseAllocationPending, false},
		{"no self transition from approved", ExpenseAllocationApproved, ExpenseAllocationApproved, false},
		{"unknown source", ExpenseAllocationStatus("BOGUS"), ExpenseAllocationPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestExpenseAllocationStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExpenseAllocationPending.IsTerminal())
	assert.False(t, ExpenseAllocationAllocated.IsTerminal())
	assert.True(t, ExpenseAllocationApproved.IsTerminal())
	assert.True(t, ExpenseAllocationRejected.IsTerminal())
	assert.False(t, ExpenseAllocationStatus("BOGUS").IsTerminal())
}

func TestExpenseAllocationStatus_IsValid(t *testing.T) {
	for _, s := range []ExpenseAllocationStatus{
		ExpenseAllocationPending,
		ExpenseAllocationAllocated,
		ExpenseAllocationApproved,
		ExpenseAllocationRejected,
	} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, ExpenseAllocationStatus("").IsValid())
}
