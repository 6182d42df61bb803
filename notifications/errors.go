package notifications

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current status. The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid notification status transition")

	// ErrConcurrencyLost is returned when another actor transitioned the
	// record between the read and the compare-and-set write. The caller
	// should surface this as "already handled".
	ErrConcurrencyLost = errors.New("notification already handled")

	// ErrNotFound is returned when the notification id is unknown.
	ErrNotFound = errors.New("notification not found")

	// ErrUnauthorized is returned when the acting identity is missing or
	// not allowed to perform the operation.
	ErrUnauthorized = errors.New("caller not authorized")
)
