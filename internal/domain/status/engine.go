package status

// Apply folds one external event into a snapshot and returns the resulting
// snapshot. It is pure and total: an event that does not apply to the current
// state is a no-op returning the input unchanged, never an error.
//
// Each event touches exactly one axis (plus the derived general phase);
// delivery and payment never influence each other, which is what lets a
// document be Sent and Overdue at the same time.
func Apply(s Snapshot, e Event) Snapshot {
	if s.General == GeneralCancelled && e.Kind != EventDocumentCancelled {
		// A withdrawn document accepts no further axis movement.
		return s
	}

	switch e.Kind {
	case EventOCRCompleted:
		s.OCR = OCRCompleted
		if e.AllocationRequired {
			if s.Allocation == AllocationNotRequired {
				s.Allocation = AllocationPending
			}
		} else if s.Allocation == AllocationPending {
			s.Allocation = AllocationNotRequired
		}

	case EventOCRFailed:
		if s.OCR == OCRNotRequired {
			return s
		}
		s.OCR = OCRFailed

	case EventAllocationProgress:
		switch s.Allocation {
		case AllocationPending, AllocationPartiallyAllocated:
			s.Allocation = AllocationPartiallyAllocated
		default:
			return s
		}

	case EventAllocationCompleted:
		s.Allocation = AllocationFullyAllocated
		if e.ApprovalRequired && s.Approval == ApprovalNotRequired {
			s.Approval = ApprovalPending
		}

	case EventApprovalRequired:
		switch s.Approval {
		case ApprovalNotRequired, ApprovalRejected:
			s.Approval = ApprovalPending
		default:
			return s
		}

	case EventApprovalWithdrawn:
		if s.Approval != ApprovalPending {
			return s
		}
		s.Approval = ApprovalNotRequired

	case EventApprovalDecided:
		if s.Approval != ApprovalPending {
			// Duplicate or out-of-band decision; the progression engine
			// already guards ordering, so replay is a no-op here.
			return s
		}
		if e.Approved {
			s.Approval = ApprovalApproved
		} else {
			s.Approval = ApprovalRejected
		}

	case EventDeliveryChanged:
		if !e.Delivery.IsValid() {
			return s
		}
		s.Delivery = e.Delivery

	case EventPaymentChanged:
		if !e.Payment.IsValid() {
			return s
		}
		s.Payment = e.Payment

	case EventDocumentCancelled:
		s.General = GeneralCancelled
		return s

	default:
		return s
	}

	s.General = s.deriveGeneral()
	return s
}
