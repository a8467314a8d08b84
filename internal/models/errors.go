package models

import "errors"

// Business-rule errors shared by the store and service layers. The API layer
// maps them to short user-visible denials; anything else is treated as an
// infrastructure failure.
var (
	// ErrNotFound is returned when an order, request, payment, product or
	// seller referenced by a command does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the acting identity does not own the
	// order, or is not the hub/admin for a privileged action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyProcessed is returned when the target is in a terminal state:
	// order already processed, request already approved or rejected, payment
	// already confirmed.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrValidation is returned for malformed user input, typically a
	// non-integer or out-of-range quantity. The user is re-prompted without
	// losing the rest of the session.
	ErrValidation = errors.New("validation failed")

	// ErrSessionExpired is returned when a multi-step flow resumes after its
	// session vanished; the user must restart the dialogue.
	ErrSessionExpired = errors.New("session expired")
)
