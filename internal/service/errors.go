package service

import "errors"

// Domain sentinel errors surfaced to HTTP handlers. Handlers translate these
// to 403/409 style responses; everything else is a plain 400/500.
var (
	// ErrInvalidStateTransition is returned when a request transition is
	// attempted from a state that does not allow it. The record is never
	// mutated on this error.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrPermissionDenied is returned when the acting user lacks the
	// approval authority for the request's current level.
	ErrPermissionDenied = errors.New("permission denied")
)
