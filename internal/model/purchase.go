package model

import "time"

// Purchase types. A membership purchase funds the session ledger after
// admin approval; a class purchase is the legacy direct reservation
// kept for backwards-compatible reads.
const (
	PurchaseTypeMembership = "membership"
	PurchaseTypeClass      = "class"
)

// Purchase statuses.
const (
	PurchaseStatusPendingPayment  = "pending_payment"
	PurchaseStatusPendingApproval = "pending_admin_approval"
	PurchaseStatusActive          = "active"
	PurchaseStatusConfirmed       = "confirmed"
	PurchaseStatusRejected        = "rejected"
)

// Payment statuses tracked independently of the purchase status.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSubmitted = "submitted"
	PaymentStatusVerified  = "verified"
	PaymentStatusRejected  = "rejected"
)

// Purchase is a generalized purchase/booking record. Membership
// purchases walk pending_payment -> pending_admin_approval -> active
// (or rejected); the admin approval is the only path that credits a
// UserMembership ledger. MembershipID back-references the ledger row a
// purchase funded so lazy materialization stays idempotent.
type Purchase struct {
	ID                  uint64
	UserID              uint64
	BookingType         string
	PackageID           string
	PackageSessions     int
	PackageValidityDays int
	Amount              float64
	Status              string
	PaymentStatus       string
	PaymentMethod       string
	ReferenceNumber     string
	MembershipID        *uint64
	RejectionReason     string
	CreatedAt           time.Time
	ConfirmedAt         *time.Time
	CancelledAt         *time.Time
}
