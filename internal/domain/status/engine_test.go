package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_OCREvents(t *testing.T) {
	tests := []struct {
		name           string
		start          Snapshot
		event          Event
		wantOCR        OCRStatus
		wantAllocation AllocationStatus
		wantGeneral    GeneralStatus
	}{
		{
			name:           "completion opens allocation when required",
			start:          NewSnapshot("t1", "doc-1", true),
			event:          OCRCompletedEvent(true),
			wantOCR:        OCRCompleted,
			wantAllocation: AllocationPending,
			wantGeneral:    GeneralProcessing,
		},
		{
			name:           "completion without allocation moves straight on",
			start:          NewSnapshot("t1", "doc-1", true),
			event:          OCRCompletedEvent(false),
			wantOCR:        OCRCompleted,
			wantAllocation: AllocationNotRequired,
			wantGeneral:    GeneralIssued,
		},
		{
			name:           "failure marks the axis",
			start:          NewSnapshot("t1", "doc-1", true),
			event:          OCRFailedEvent(),
			wantOCR:        OCRFailed,
			wantAllocation: AllocationNotRequired,
			wantGeneral:    GeneralProcessing,
		},
		{
			name:           "failure is a no-op when extraction was never required",
			start:          NewSnapshot("t1", "doc-1", false),
			event:          OCRFailedEvent(),
			wantOCR:        OCRNotRequired,
			wantAllocation: AllocationNotRequired,
			wantGeneral:    GeneralDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.start, tt.event)
			assert.Equal(t, tt.wantOCR, got.OCR)
			assert.Equal(t, tt.wantAllocation, got.Allocation)
			assert.Equal(t, tt.wantGeneral, got.General)
		})
	}
}

func TestApply_AllocationEvents(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", true)
	s = Apply(s, OCRCompletedEvent(true))

	s = Apply(s, AllocationProgressEvent())
	assert.Equal(t, AllocationPartiallyAllocated, s.Allocation)
	assert.Equal(t, GeneralProcessing, s.General)

	s = Apply(s, AllocationCompletedEvent(true))
	assert.Equal(t, AllocationFullyAllocated, s.Allocation)
	assert.Equal(t, ApprovalPending, s.Approval)
	assert.Equal(t, GeneralProcessing, s.General)

	// Progress after completion is a no-op.
	again := Apply(s, AllocationProgressEvent())
	assert.Equal(t, s, again)
}

func TestApply_ApprovalEvents(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", false)
	s = Apply(s, ApprovalRequiredEvent())
	assert.Equal(t, ApprovalPending, s.Approval)
	assert.Equal(t, GeneralProcessing, s.General)

	approved := Apply(s, ApprovalDecidedEvent(true))
	assert.Equal(t, ApprovalApproved, approved.Approval)
	assert.Equal(t, GeneralIssued, approved.General)

	rejected := Apply(s, ApprovalDecidedEvent(false))
	assert.Equal(t, ApprovalRejected, rejected.Approval)
	assert.Equal(t, GeneralProcessing, rejected.General)

	// A second decision on a settled axis changes nothing.
	replay := Apply(approved, ApprovalDecidedEvent(false))
	assert.Equal(t, approved, replay)

	// A rejected document can re-enter the workflow.
	resubmitted := Apply(rejected, ApprovalRequiredEvent())
	assert.Equal(t, ApprovalPending, resubmitted.Approval)
}

func TestApply_ApprovalWithdrawn(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", false)
	s = Apply(s, ApprovalRequiredEvent())
	require.Equal(t, ApprovalPending, s.Approval)

	withdrawn := Apply(s, ApprovalWithdrawnEvent())
	assert.Equal(t, ApprovalNotRequired, withdrawn.Approval)

	// Withdrawal only clears a pending walk; a decided one keeps its outcome.
	approved := Apply(s, ApprovalDecidedEvent(true))
	assert.Equal(t, approved, Apply(approved, ApprovalWithdrawnEvent()))
}

func TestApply_DeliveryAndPaymentAreIndependent(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", false)
	s = Apply(s, DeliveryChangedEvent(DeliverySent))
	s = Apply(s, PaymentChangedEvent(PaymentOverdue))

	assert.Equal(t, DeliverySent, s.Delivery)
	assert.Equal(t, PaymentOverdue, s.Payment)
	assert.True(t, s.NeedsAttention())

	// An overdue payment alone never drags the phase back to processing.
	assert.Equal(t, GeneralIssued, s.General)

	// Paying an overdue invoice completes the document.
	s = Apply(s, PaymentChangedEvent(PaymentPaid))
	assert.Equal(t, GeneralCompleted, s.General)
}

func TestApply_CancellationIsSticky(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", true)
	s = Apply(s, DocumentCancelledEvent())
	assert.Equal(t, GeneralCancelled, s.General)

	for _, e := range []Event{
		OCRCompletedEvent(true),
		OCRFailedEvent(),
		AllocationProgressEvent(),
		AllocationCompletedEvent(true),
		ApprovalRequiredEvent(),
		ApprovalWithdrawnEvent(),
		ApprovalDecidedEvent(true),
		DeliveryChangedEvent(DeliverySent),
		PaymentChangedEvent(PaymentPaid),
	} {
		got := Apply(s, e)
		assert.Equal(t, s, got, "event %s moved a cancelled document", e.Kind)
	}

	// Re-cancelling is harmless.
	assert.Equal(t, s, Apply(s, DocumentCancelledEvent()))
}

func TestApply_UnknownEventIsNoOp(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", true)
	got := Apply(s, Event{Kind: EventKind("totally.unknown")})
	assert.Equal(t, s, got)

	got = Apply(s, DeliveryChangedEvent(DeliveryStatus("BOGUS")))
	assert.Equal(t, s, got)

	got = Apply(s, PaymentChangedEvent(PaymentStatus("BOGUS")))
	assert.Equal(t, s, got)
}

func TestApply_FullLifecycle(t *testing.T) {
	s := NewSnapshot("t1", "inv-42", true)
	assert.Equal(t, GeneralDraft, s.General)

	s = Apply(s, OCRCompletedEvent(true))
	s = Apply(s, AllocationCompletedEvent(true))
	s = Apply(s, ApprovalDecidedEvent(true))
	assert.Equal(t, GeneralIssued, s.General)
	assert.Contains(t, s.RecommendedActions(), ActionSendDelivery)

	s = Apply(s, DeliveryChangedEvent(DeliverySent))
	assert.Equal(t, GeneralIssued, s.General)

	s = Apply(s, PaymentChangedEvent(PaymentPartiallyPaid))
	assert.Equal(t, GeneralIssued, s.General)

	s = Apply(s, PaymentChangedEvent(PaymentPaid))
	assert.Equal(t, GeneralCompleted, s.General)
	assert.Empty(t, s.RecommendedActions())
}
