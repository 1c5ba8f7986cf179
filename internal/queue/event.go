// Package queue defines message payloads exchanged over the message broker.
package queue

// SMSRequestedEvent is published when the API wants a text message
// delivered to a member or an admin. The API never talks to the SMS
// gateway directly; delivery happens in the background consumer so a
// slow or down gateway cannot fail a booking.
type SMSRequestedEvent struct {
	To          string `json:"to"`           // +220 international format
	Body        string `json:"body"`         // final message text
	Kind        string `json:"kind"`         // one of the Kind* constants
	UserID      uint64 `json:"user_id"`      // recipient, 0 for admin broadcasts
	RequestedAt string `json:"requested_at"` // RFC3339 UTC
}

// Event kinds carried in SMSRequestedEvent.Kind.
const (
	KindBookingConfirmed = "booking_confirmed"
	KindBookingCancelled = "booking_cancelled"
	KindClassCancelled   = "class_cancelled"
	KindPaymentSubmitted = "payment_submitted"
	KindPurchaseApproved = "purchase_approved"
	KindPurchaseRejected = "purchase_rejected"
)
