// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure scenarios
// with errors.Is and translate them into HTTP statuses: not-found
// values become 404, ErrForbidden 403, the conflict family 409.
// Ledger-specific errors (insufficient sessions, expired membership)
// live in the model package next to the transition rules that raise
// them.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as attempting to delete a class
// that still has weekly schedules. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a record is not in the status the
// requested transition requires, e.g. approving a purchase that is not
// pending admin approval or cancelling a booking twice.
var ErrInvalidState = errors.New("invalid state for operation")

// Not-found sentinels, one per aggregate.
var (
	ErrClassNotFound      = errors.New("class not found")
	ErrScheduleNotFound   = errors.New("weekly schedule not found")
	ErrInstanceNotFound   = errors.New("schedule instance not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrMembershipNotFound = errors.New("no active membership")
)

// Booking engine failures, checked in precondition order.
var (
	// ErrInstanceUnavailable: the instance is inactive or was cancelled.
	ErrInstanceUnavailable = errors.New("class is not available")
	// ErrInstanceFull: every spot on the instance is taken.
	ErrInstanceFull = errors.New("class is full")
	// ErrInstanceInPast: the class has already started.
	ErrInstanceInPast = errors.New("class has already started")
	// ErrDuplicateBooking: the member already holds a booked spot here.
	ErrDuplicateBooking = errors.New("already booked for this class")
	// ErrCancellationWindow: less than the allowed window remains
	// before class start.
	ErrCancellationWindow = errors.New("cancellation window has passed")
)

// ErrSlotExists is returned when creating a weekly schedule for a
// class/day/start combination that already has one.
var ErrSlotExists = errors.New("schedule slot already exists")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")
