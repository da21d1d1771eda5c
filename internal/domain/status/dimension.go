package status

// GeneralStatus is the coarse lifecycle phase of a document. It is always
// derived from the other five axes and never set directly by callers.
type GeneralStatus string

const (
	GeneralDraft      GeneralStatus = "DRAFT"
	GeneralProcessing GeneralStatus = "PROCESSING"
	GeneralIssued     GeneralStatus = "ISSUED"
	GeneralCompleted  GeneralStatus = "COMPLETED"
	GeneralCancelled  GeneralStatus = "CANCELLED"
)

// OCRStatus tracks text-extraction progress for a document.
type OCRStatus string

const (
	OCRNotRequired OCRStatus = "NOT_REQUIRED"
	OCRPending     OCRStatus = "PENDING"
	OCRCompleted   OCRStatus = "COMPLETED"
	OCRFailed      OCRStatus = "FAILED"
)

// AllocationStatus tracks cost-allocation progress for a document.
type AllocationStatus string

const (
	AllocationNotRequired        AllocationStatus = "NOT_REQUIRED"
	AllocationPending            AllocationStatus = "PENDING"
	AllocationPartiallyAllocated AllocationStatus = "PARTIALLY_ALLOCATED"
	AllocationFullyAllocated     AllocationStatus = "FULLY_ALLOCATED"
)

// ApprovalStatus tracks approval-workflow progress for a document.
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "NOT_REQUIRED"
	ApprovalPending     ApprovalStatus = "PENDING"
	ApprovalApproved    ApprovalStatus = "APPROVED"
	ApprovalRejected    ApprovalStatus = "REJECTED"
)

// DeliveryStatus tracks delivery of a document to its recipient.
type DeliveryStatus string

const (
	DeliveryNotSent DeliveryStatus = "NOT_SENT"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// PaymentStatus tracks payment collection for a document.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentOverdue       PaymentStatus = "OVERDUE"
)

var validGeneral = map[GeneralStatus]bool{
	GeneralDraft:      true,
	GeneralProcessing: true,
	GeneralIssued:     true,
	GeneralCompleted:  true,
	GeneralCancelled:  true,
}

var validOCR = map[OCRStatus]bool{
	OCRNotRequired: true,
	OCRPending:     true,
	OCRCompleted:   true,
	OCRFailed:      true,
}

var validAllocation = map[AllocationStatus]bool{
	AllocationNotRequired:        true,
	AllocationPending:            true,
	AllocationPartiallyAllocated: true,
	AllocationFullyAllocated:     true,
}

var validApproval = map[ApprovalStatus]bool{
	ApprovalNotRequired: true,
	ApprovalPending:     true,
	ApprovalApproved:    true,
	ApprovalRejected:    true,
}

var validDelivery = map[DeliveryStatus]bool{
	DeliveryNotSent: true,
	DeliverySent:    true,
	DeliveryFailed:  true,
}

var validPayment = map[PaymentStatus]bool{
	PaymentPending:       true,
	PaymentPartiallyPaid: true,
	PaymentPaid:          true,
	PaymentOverdue:       true,
}

func (s GeneralStatus) String() string    { return string(s) }
func (s OCRStatus) String() string        { return string(s) }
func (s AllocationStatus) String() string { return string(s) }
func (s ApprovalStatus) String() string   { return string(s) }
func (s DeliveryStatus) String() string   { return string(s) }
func (s PaymentStatus) String() string    { return string(s) }

// IsValid returns true if the value is a defined general status
func (s GeneralStatus) IsValid() bool { return validGeneral[s] }

// IsValid returns true if the value is a defined OCR status
func (s OCRStatus) IsValid() bool { return validOCR[s] }

// IsValid returns true if the value is a defined allocation status
func (s AllocationStatus) IsValid() bool { return validAllocation[s] }

// IsValid returns true if the value is a defined approval status
func (s ApprovalStatus) IsValid() bool { return validApproval[s] }

// IsValid returns true if the value is a defined delivery status
func (s DeliveryStatus) IsValid() bool { return validDelivery[s] }

// IsValid returns true if the value is a defined payment status
func (s PaymentStatus) IsValid() bool { return validPayment[s] }

// IsTerminal returns true when the general phase admits no further change.
func (s GeneralStatus) IsTerminal() bool {
	return s == GeneralCompleted || s == GeneralCancelled
}

// IsSettled returns true when OCR no longer blocks the document.
func (s OCRStatus) IsSettled() bool {
	return s == OCRNotRequired || s == OCRCompleted
}

// IsSettled returns true when allocation no longer blocks the document.
func (s AllocationStatus) IsSettled() bool {
	return s == AllocationNotRequired || s == AllocationFullyAllocated
}

// IsSettled returns true when approval no longer blocks the document.
func (s ApprovalStatus) IsSettled() bool {
	return s == ApprovalNotRequired || s == ApprovalApproved
}

// IsFailure reports whether the axis value represents a failed outcome that
// needs operator attention.
func (s OCRStatus) IsFailure() bool      { return s == OCRFailed }
func (s ApprovalStatus) IsFailure() bool { return s == ApprovalRejected }
func (s DeliveryStatus) IsFailure() bool { return s == DeliveryFailed }
func (s PaymentStatus) IsFailure() bool  { return s == PaymentOverdue }
