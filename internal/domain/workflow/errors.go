package workflow

import "errors"

var (
	// ErrValidation is returned for malformed input, before any state change
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStep is returned when a decision targets a step other than
	// the instance's current step
	ErrInvalidStep = errors.New("decision targets a non-current step")

	// ErrUnauthorizedApprover is returned when the acting user is not in the
	// resolved approver set for the current step
	ErrUnauthorizedApprover = errors.New("user is not an eligible approver for this step")

	// ErrAlreadyDecided is returned when an approver records a second,
	// different decision for the same step
	ErrAlreadyDecided = errors.New("approver already decided this step")

	// ErrInstanceClosed is returned when a decision arrives after the
	// instance reached a terminal state
	ErrInstanceClosed = errors.New("approval instance is closed")

	// ErrNotConfigurable is returned for configuration writes against the
	// implicit always-visible dimension
	ErrNotConfigurable = errors.New("dimension is not configurable")

	// ErrLookupUnavailable wraps org-unit or delegate lookup failures. It is
	// the one retryable error class in this core; it must never be collapsed
	// into an empty approver set.
	ErrLookupUnavailable = errors.New("approver lookup unavailable")

	// ErrVersionConflict is returned by repositories on a stale optimistic
	// concurrency write
	ErrVersionConflict = errors.New("version conflict")

	// ErrDefinitionNotFound is returned when a referenced workflow definition
	// does not exist for the tenant
	ErrDefinitionNotFound = errors.New("workflow definition not found")

	// ErrInstanceNotFound is returned when a referenced approval instance
	// does not exist
	ErrInstanceNotFound = errors.New("approval instance not found")

	// ErrInstanceAlreadyOpen is returned when starting an approval for a
	// document that already has an in-progress instance
	ErrInstanceAlreadyOpen = errors.New("document already has an open approval instance")
)
