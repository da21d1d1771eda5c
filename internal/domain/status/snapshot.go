package status

import (
	"fmt"
	"time"
)

// Action is a recommended follow-up for a snapshot axis that has not yet
// reached a positive terminal value.
type Action string

const (
	ActionRetryOCR           Action = "retry_ocr"
	ActionAwaitOCR           Action = "await_ocr"
	ActionCompleteAllocation Action = "complete_allocation"
	ActionAwaitApproval      Action = "await_approval"
	ActionResubmit           Action = "resubmit"
	ActionSendDelivery       Action = "send_delivery"
	ActionResendDelivery     Action = "resend_delivery"
	ActionCollectPayment     Action = "collect_payment"
)

// Snapshot is the composite status of one document across all six axes.
// Each revision is immutable; the transition engine returns a new value and
// Version is bumped on persist, not here.
type Snapshot struct {
	DocumentID string           `json:"document_id"`
	TenantID   string           `json:"tenant_id"`
	General    GeneralStatus    `json:"general"`
	OCR        OCRStatus        `json:"ocr"`
	Allocation AllocationStatus `json:"allocation"`
	Approval   ApprovalStatus   `json:"approval"`
	Delivery   DeliveryStatus   `json:"delivery"`
	Payment    PaymentStatus    `json:"payment"`
	Version    int64            `json:"version"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewSnapshot returns the initial snapshot for a freshly created document.
func NewSnapshot(tenantID, documentID string, ocrRequired bool) Snapshot {
	ocr := OCRNotRequired
	if ocrRequired {
		ocr = OCRPending
	}
	return Snapshot{
		DocumentID: documentID,
		TenantID:   tenantID,
		General:    GeneralDraft,
		OCR:        ocr,
		Allocation: AllocationNotRequired,
		Approval:   ApprovalNotRequired,
		Delivery:   DeliveryNotSent,
		Payment:    PaymentPending,
	}
}

// Validate checks that every axis carries a defined value.
func (s Snapshot) Validate() error {
	if !s.General.IsValid() {
		return fmt.Errorf("%w: general %q", ErrInvalidStatusValue, s.General)
	}
	if !s.OCR.IsValid() {
		return fmt.Errorf("%w: ocr %q", ErrInvalidStatusValue, s.OCR)
	}
	if !s.Allocation.IsValid() {
		return fmt.Errorf("%w: allocation %q", ErrInvalidStatusValue, s.Allocation)
	}
	if !s.Approval.IsValid() {
		return fmt.Errorf("%w: approval %q", ErrInvalidStatusValue, s.Approval)
	}
	if !s.Delivery.IsValid() {
		return fmt.Errorf("%w: delivery %q", ErrInvalidStatusValue, s.Delivery)
	}
	if !s.Payment.IsValid() {
		return fmt.Errorf("%w: payment %q", ErrInvalidStatusValue, s.Payment)
	}
	return nil
}

// NeedsAttention reports whether any axis sits at a failed or overdue value.
// Axes are independent, so a document can be Sent and Overdue at once; that
// combination still needs attention.
func (s Snapshot) NeedsAttention() bool {
	return s.OCR.IsFailure() ||
		s.Approval.IsFailure() ||
		s.Delivery.IsFailure() ||
		s.Payment.IsFailure()
}

// IsReadyForNextStage reports whether the axis currently blocking the general
// phase has reached a positive terminal value.
func (s Snapshot) IsReadyForNextStage() bool {
	if s.General.IsTerminal() {
		return false
	}
	switch {
	case !s.OCR.IsSettled():
		return s.OCR == OCRCompleted
	case !s.Allocation.IsSettled():
		return false
	case !s.Approval.IsSettled():
		return false
	case s.Delivery == DeliveryNotSent || s.Delivery == DeliveryFailed:
		// Issuance gate cleared; delivery is the next stage.
		return true
	default:
		return s.Payment == PaymentPaid
	}
}

// RecommendedActions maps every non-settled axis to one action token.
// Multiple tokens returned together are expected; the axes are orthogonal.
func (s Snapshot) RecommendedActions() []Action {
	if s.General.IsTerminal() {
		return nil
	}

	var actions []Action
	switch s.OCR {
	case OCRPending:
		actions = append(actions, ActionAwaitOCR)
	case OCRFailed:
		actions = append(actions, ActionRetryOCR)
	}
	switch s.Allocation {
	case AllocationPending, AllocationPartiallyAllocated:
		actions = append(actions, ActionCompleteAllocation)
	}
	switch s.Approval {
	case ApprovalPending:
		actions = append(actions, ActionAwaitApproval)
	case ApprovalRejected:
		actions = append(actions, ActionResubmit)
	}
	switch s.Delivery {
	case DeliveryNotSent:
		if s.readyToDeliver() {
			actions = append(actions, ActionSendDelivery)
		}
	case DeliveryFailed:
		actions = append(actions, ActionResendDelivery)
	}
	switch s.Payment {
	case PaymentPending, PaymentPartiallyPaid, PaymentOverdue:
		actions = append(actions, ActionCollectPayment)
	}
	return actions
}

// Description renders a short human-readable summary of the composite state.
func (s Snapshot) Description() string {
	if s.General.IsTerminal() {
		return s.General.String()
	}
	if s.NeedsAttention() {
		return fmt.Sprintf("%s (needs attention)", s.General)
	}
	return s.General.String()
}

// readyToDeliver reports whether all pre-issuance axes have settled.
func (s Snapshot) readyToDeliver() bool {
	return s.OCR.IsSettled() && s.Allocation.IsSettled() && s.Approval.IsSettled()
}

// deriveGeneral recomputes the general phase from the other five axes.
// Cancelled is sticky and survives later axis changes.
func (s Snapshot) deriveGeneral() GeneralStatus {
	if s.General == GeneralCancelled {
		return GeneralCancelled
	}
	if s.OCR.IsFailure() || s.Approval.IsFailure() || s.Delivery.IsFailure() {
		return GeneralProcessing
	}
	if s.readyToDeliver() {
		if s.Delivery == DeliverySent && s.Payment == PaymentPaid {
			return GeneralCompleted
		}
		return GeneralIssued
	}
	if s.OCR == OCRPending || s.Allocation == AllocationPending ||
		s.Allocation == AllocationPartiallyAllocated || s.Approval == ApprovalPending {
		return GeneralProcessing
	}
	return GeneralDraft
}
