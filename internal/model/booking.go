package model

import "time"

// Class booking statuses. Only BookingStatusBooked counts toward an
// instance's capacity; the other four are terminal.
const (
	BookingStatusBooked           = "booked"
	BookingStatusAttended         = "attended"
	BookingStatusNoShow           = "no_show"
	BookingStatusCancelled        = "cancelled"
	BookingStatusCancelledByAdmin = "cancelled_by_admin"
)

// CancellationWindow is how long before class start a member may still
// cancel and get the session credited back.
const CancellationWindow = 2 * time.Hour

// ClassBooking is a member's spot in one ScheduleInstance, paid for
// with one session from their membership ledger.
type ClassBooking struct {
	ID                 uint64
	UserID             uint64
	ScheduleInstanceID uint64
	Status             string
	AttendedAt         *time.Time
	CancelledAt        *time.Time
	CreatedAt          time.Time
}

// CancellableAt reports whether a booking for a class starting at
// startsAt can still be cancelled at now: strictly more than
// CancellationWindow before the start.
func CancellableAt(startsAt, now time.Time) bool {
	return now.Before(startsAt.Add(-CancellationWindow))
}
