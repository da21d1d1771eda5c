package status

import "errors"

var (
	// ErrInvalidStatusValue is returned when an axis carries an undefined value
	ErrInvalidStatusValue = errors.New("invalid status value")

	// ErrInvalidEvent is returned when an event is structurally malformed
	ErrInvalidEvent = errors.New("invalid status event")
)
