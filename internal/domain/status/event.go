package status

// EventKind identifies an external lifecycle event applied to a snapshot
type EventKind string

const (
	EventOCRCompleted        EventKind = "ocr.completed"
	EventOCRFailed           EventKind = "ocr.failed"
	EventAllocationProgress  EventKind = "allocation.progress"
	EventAllocationCompleted EventKind = "allocation.completed"
	EventApprovalDecided     EventKind = "approval.decided"
	EventApprovalRequired    EventKind = "approval.required"
	EventApprovalWithdrawn   EventKind = "approval.withdrawn"
	EventDeliveryChanged     EventKind = "delivery.changed"
	EventPaymentChanged      EventKind = "payment.changed"
	EventDocumentCancelled   EventKind = "document.cancelled"
)

// String returns the string representation of the event kind
func (k EventKind) String() string { return string(k) }

// IsValid checks if the event kind is one of the defined constants
func (k EventKind) IsValid() bool {
	switch k {
	case EventOCRCompleted,
		EventOCRFailed,
		EventAllocationProgress,
		EventAllocationCompleted,
		EventApprovalDecided,
		EventApprovalRequired,
		EventApprovalWithdrawn,
		EventDeliveryChanged,
		EventPaymentChanged,
		EventDocumentCancelled:
		return true
	default:
		return false
	}
}

// Event is one external occurrence that may move a snapshot's axes. Only the
// fields relevant to the kind are read; the rest are ignored.
type Event struct {
	Kind EventKind

	// EventOCRCompleted: whether the extracted document needs cost allocation.
	AllocationRequired bool

	// EventAllocationCompleted: whether the document's classification
	// requires an approval workflow afterwards.
	ApprovalRequired bool

	// EventApprovalDecided
	Approved bool

	// EventDeliveryChanged
	Delivery DeliveryStatus

	// EventPaymentChanged
	Payment PaymentStatus
}

// OCRCompletedEvent reports finished text extraction.
func OCRCompletedEvent(allocationRequired bool) Event {
	return Event{Kind: EventOCRCompleted, AllocationRequired: allocationRequired}
}

// OCRFailedEvent reports failed text extraction.
func OCRFailedEvent() Event {
	return Event{Kind: EventOCRFailed}
}

// AllocationProgressEvent reports a partial cost allocation.
func AllocationProgressEvent() Event {
	return Event{Kind: EventAllocationProgress}
}

// AllocationCompletedEvent reports a finished cost allocation.
func AllocationCompletedEvent(approvalRequired bool) Event {
	return Event{Kind: EventAllocationCompleted, ApprovalRequired: approvalRequired}
}

// ApprovalRequiredEvent reports that a workflow was matched and the document
// now awaits approval.
func ApprovalRequiredEvent() Event {
	return Event{Kind: EventApprovalRequired}
}

// ApprovalWithdrawnEvent reports that a pending approval workflow was
// cancelled without an outcome.
func ApprovalWithdrawnEvent() Event {
	return Event{Kind: EventApprovalWithdrawn}
}

// ApprovalDecidedEvent reports the terminal outcome of an approval workflow.
func ApprovalDecidedEvent(approved bool) Event {
	return Event{Kind: EventApprovalDecided, Approved: approved}
}

// DeliveryChangedEvent reports a delivery outcome.
func DeliveryChangedEvent(d DeliveryStatus) Event {
	return Event{Kind: EventDeliveryChanged, Delivery: d}
}

// PaymentChangedEvent reports a payment state change.
func PaymentChangedEvent(p PaymentStatus) Event {
	return Event{Kind: EventPaymentChanged, Payment: p}
}

// DocumentCancelledEvent reports withdrawal of the document.
func DocumentCancelledEvent() Event {
	return Event{Kind: EventDocumentCancelled}
}
