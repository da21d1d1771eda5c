package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", true)
	assert.Equal(t, GeneralDraft, s.General)
	assert.Equal(t, OCRPending, s.OCR)
	assert.Equal(t, AllocationNotRequired, s.Allocation)
	assert.Equal(t, ApprovalNotRequired, s.Approval)
	assert.Equal(t, DeliveryNotSent, s.Delivery)
	assert.Equal(t, PaymentPending, s.Payment)
	require.NoError(t, s.Validate())

	noOCR := NewSnapshot("t1", "doc-2", false)
	assert.Equal(t, OCRNotRequired, noOCR.OCR)
}

func TestSnapshot_Validate(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", false)
	require.NoError(t, s.Validate())

	s.Payment = PaymentStatus("BOGUS")
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatusValue)
}

func TestSnapshot_NeedsAttention(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   bool
	}{
		{"clean draft", func(s *Snapshot) {}, false},
		{"ocr failed", func(s *Snapshot) { s.OCR = OCRFailed }, true},
		{"approval rejected", func(s *Snapshot) { s.Approval = ApprovalRejected }, true},
		{"delivery failed", func(s *Snapshot) { s.Delivery = DeliveryFailed }, true},
		{"payment overdue", func(s *Snapshot) { s.Payment = PaymentOverdue }, true},
		{
			"sent and overdue together",
			func(s *Snapshot) {
				s.Delivery = DeliverySent
				s.Payment = PaymentOverdue
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot("t1", "doc-1", false)
			tt.mutate(&s)
			assert.Equal(t, tt.want, s.NeedsAttention())
		})
	}
}

func TestSnapshot_RecommendedActions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   []Action
	}{
		{
			name:   "pending ocr",
			mutate: func(s *Snapshot) { s.OCR = OCRPending },
			want:   []Action{ActionAwaitOCR, ActionCollectPayment},
		},
		{
			name:   "failed ocr",
			mutate: func(s *Snapshot) { s.OCR = OCRFailed },
			want:   []Action{ActionRetryOCR, ActionCollectPayment},
		},
		{
			name: "allocation in progress",
			mutate: func(s *Snapshot) {
				s.Allocation = AllocationPartiallyAllocated
			},
			want: []Action{ActionCompleteAllocation, ActionCollectPayment},
		},
		{
			name:   "awaiting approval",
			mutate: func(s *Snapshot) { s.Approval = ApprovalPending },
			want:   []Action{ActionAwaitApproval, ActionCollectPayment},
		},
		{
			name:   "rejected wants resubmission",
			mutate: func(s *Snapshot) { s.Approval = ApprovalRejected },
			want:   []Action{ActionResubmit, ActionCollectPayment},
		},
		{
			name:   "ready to send",
			mutate: func(s *Snapshot) {},
			want:   []Action{ActionSendDelivery, ActionCollectPayment},
		},
		{
			name:   "failed delivery wants resend",
			mutate: func(s *Snapshot) { s.Delivery = DeliveryFailed },
			want:   []Action{ActionResendDelivery, ActionCollectPayment},
		},
		{
			name: "overdue still collects",
			mutate: func(s *Snapshot) {
				s.Delivery = DeliverySent
				s.Payment = PaymentOverdue
			},
			want: []Action{ActionCollectPayment},
		},
		{
			name: "fully settled",
			mutate: func(s *Snapshot) {
				s.Delivery = DeliverySent
				s.Payment = PaymentPaid
			},
			want: nil,
		},
		{
			name:   "cancelled recommends nothing",
			mutate: func(s *Snapshot) { s.General = GeneralCancelled },
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot("t1", "doc-1", false)
			tt.mutate(&s)
			assert.Equal(t, tt.want, s.RecommendedActions())
		})
	}
}

func TestSnapshot_IsReadyForNextStage(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", false)
	// Pre-issuance gates cleared, delivery is next.
	assert.True(t, s.IsReadyForNextStage())

	blocked := s
	blocked.Approval = ApprovalPending
	assert.False(t, blocked.IsReadyForNextStage())

	done := s
	done.Delivery = DeliverySent
	done.Payment = PaymentPaid
	assert.True(t, done.IsReadyForNextStage())

	cancelled := s
	cancelled.General = GeneralCancelled
	assert.False(t, cancelled.IsReadyForNextStage())
}

func TestSnapshot_Description(t *testing.T) {
	s := NewSnapshot("t1", "doc-1", false)
	assert.Equal(t, "DRAFT", s.Description())

	s.Payment = PaymentOverdue
	assert.Equal(t, "DRAFT (needs attention)", s.Description())

	s.General = GeneralCancelled
	assert.Equal(t, "CANCELLED", s.Description())
}
