// Package notify turns domain events into SMS messages. It composes
// the message text, normalizes the recipient's phone number and hands
// the result to the broker. Delivery is best effort: every method is
// called after the database transaction committed, and a publish
// failure is logged by the publisher and otherwise ignored.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/studioreform/booking-api/internal/queue"
	queue_publisher "github.com/studioreform/booking-api/internal/service"
	"github.com/studioreform/booking-api/internal/utils"
)

// Notifier publishes SMS requests to the sms.outbound queue. The zero
// value is usable.
type Notifier struct{}

func New() *Notifier { return &Notifier{} }

func (n *Notifier) publish(ctx context.Context, kind string, userID uint64, phone, body string) {
	to := utils.NormalizePhone(phone)
	if to == "" {
		return
	}
	_ = queue_publisher.PublishSMSRequested(ctx, queue.SMSRequestedEvent{
		To:          to,
		Body:        body,
		Kind:        kind,
		UserID:      userID,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// BookingConfirmed tells a member their spot is booked.
func (n *Notifier) BookingConfirmed(ctx context.Context, userID uint64, phone, className, date, startTime string, remaining int) {
	n.publish(ctx, queue.KindBookingConfirmed, userID, phone,
		fmt.Sprintf("Studio Reform: your %s class on %s at %s is booked. Sessions left: %d.",
			className, date, shortTime(startTime), remaining))
}

// BookingCancelled confirms a member's own cancellation and the
// credited session.
func (n *Notifier) BookingCancelled(ctx context.Context, userID uint64, phone, className, date string, remaining int) {
	n.publish(ctx, queue.KindBookingCancelled, userID, phone,
		fmt.Sprintf("Studio Reform: your %s class on %s was cancelled and the session returned. Sessions left: %d.",
			className, date, remaining))
}

// ClassCancelled tells an affected member the studio cancelled a class
// they were booked into.
func (n *Notifier) ClassCancelled(ctx context.Context, userID uint64, phone, className, date, startTime string) {
	n.publish(ctx, queue.KindClassCancelled, userID, phone,
		fmt.Sprintf("Studio Reform: unfortunately the %s class on %s at %s was cancelled. Your session has been credited back.",
			className, date, shortTime(startTime)))
}

// PaymentReceived acknowledges a member's payment submission.
func (n *Notifier) PaymentReceived(ctx context.Context, userID uint64, phone, packageName, reference string) {
	n.publish(ctx, queue.KindPaymentSubmitted, userID, phone,
		fmt.Sprintf("Studio Reform: we received your payment details for %s (ref %s). You will be notified once it is verified.",
			packageName, reference))
}

// PaymentSubmitted alerts an admin that a purchase awaits approval.
func (n *Notifier) PaymentSubmitted(ctx context.Context, adminPhone, memberName, packageName, reference string) {
	n.publish(ctx, queue.KindPaymentSubmitted, 0, adminPhone,
		fmt.Sprintf("Studio Reform: %s submitted payment for %s (ref %s). Please review.",
			memberName, packageName, reference))
}

// PurchaseApproved tells a member their membership is active.
func (n *Notifier) PurchaseApproved(ctx context.Context, userID uint64, phone, packageName string, sessions int, validUntil time.Time) {
	n.publish(ctx, queue.KindPurchaseApproved, userID, phone,
		fmt.Sprintf("Studio Reform: your %s package is active with %d sessions, valid until %s. See you in the studio!",
			packageName, sessions, validUntil.Format("2006-01-02")))
}

// PurchaseRejected tells a member their payment was not accepted.
func (n *Notifier) PurchaseRejected(ctx context.Context, userID uint64, phone, reference, reason string) {
	body := fmt.Sprintf("Studio Reform: your payment (ref %s) could not be verified.", reference)
	if reason != "" {
		body += " Reason: " + reason
	}
	n.publish(ctx, queue.KindPurchaseRejected, userID, phone, body)
}

// shortTime trims "HH:MM:SS" to "HH:MM" for message text.
func shortTime(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}
