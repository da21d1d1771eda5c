package status

// ExpenseAllocationStatus is the lifecycle of one expense allocation record.
// It is a sibling state machine to the Allocation axis: record-level
// transitions roll up into the axis value.
type ExpenseAllocationStatus string

const (
	ExpenseAllocationPending   ExpenseAllocationStatus = "PENDING"
	ExpenseAllocationAllocated ExpenseAllocationStatus = "ALLOCATED"
	ExpenseAllocationApproved  ExpenseAllocationStatus = "APPROVED"
	ExpenseAllocationRejected  ExpenseAllocationStatus = "REJECTED"
)

// allocationTransitions is the single source of truth for legality. Any
// transition absent from this table fails, including self-transitions.
var allocationTransitions = map[ExpenseAllocationStatus]map[ExpenseAllocationStatus]bool{
	ExpenseAllocationPending: {
		ExpenseAllocationAllocated: true,
		ExpenseAllocationRejected:  true,
	},
	ExpenseAllocationAllocated: {
		ExpenseAllocationApproved: true,
		ExpenseAllocationRejected: true,
	},
	ExpenseAllocationApproved: {},
	ExpenseAllocationRejected: {},
}

// String returns the string representation of the status
func (s ExpenseAllocationStatus) String() string { return string(s) }

// IsValid returns true if the value is a defined allocation status
func (s ExpenseAllocationStatus) IsValid() bool {
	_, ok := allocationTransitions[s]
	return ok
}

// IsTerminal returns true when no further transitions are allowed
func (s ExpenseAllocationStatus) IsTerminal() bool {
	targets, ok := allocationTransitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s ExpenseAllocationStatus) CanTransitionTo(target ExpenseAllocationStatus) bool {
	targets, ok := allocationTransitions[s]
	if !ok {
		return false
	}
	return targets[target]
}
