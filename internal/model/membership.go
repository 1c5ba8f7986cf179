package model

import (
	"errors"
	"time"
)

// ErrInsufficientSessions is returned by Debit when the ledger has no
// remaining sessions to spend.
var ErrInsufficientSessions = errors.New("no remaining sessions")

// ErrMembershipExpired is returned by Debit when the ledger's validity
// window is in the past. The ledger is flipped inactive as a side
// effect so subsequent lookups skip it.
var ErrMembershipExpired = errors.New("membership expired")

// UserMembership is a member's consumable session ledger, created when
// an admin approves a membership purchase. RemainingSessions is stored
// alongside UsedSessions rather than derived, so both are always
// mutated together and persisted in the same transaction.
//
// Invariant: RemainingSessions >= 0. When it reaches 0 the ledger is
// inactive; a refund that brings it back above 0 reactivates it.
type UserMembership struct {
	ID                uint64
	UserID            uint64
	PackageType       string
	TotalSessions     int
	UsedSessions      int
	RemainingSessions int
	ValidUntil        time.Time
	IsActive          bool
	CreatedAt         time.Time
}

// Expired reports whether the validity window has passed at now.
func (m *UserMembership) Expired(now time.Time) bool {
	return now.After(m.ValidUntil)
}

// Debit consumes one session. It fails with ErrMembershipExpired (and
// deactivates the ledger) when the validity window has passed, or with
// ErrInsufficientSessions when the balance is empty. On success the
// ledger is deactivated once the last session is spent.
func (m *UserMembership) Debit(now time.Time) error {
	if m.Expired(now) {
		m.IsActive = false
		return ErrMembershipExpired
	}
	if m.RemainingSessions <= 0 {
		return ErrInsufficientSessions
	}
	m.UsedSessions++
	m.RemainingSessions--
	if m.RemainingSessions == 0 {
		m.IsActive = false
	}
	return nil
}

// Credit refunds one session, reactivating the ledger if it was
// exhausted. UsedSessions is floored at zero: admin cancellations can
// credit a ledger more times than it was debited (e.g. after a top-up
// merged two packages), and remaining is allowed to exceed total.
func (m *UserMembership) Credit() {
	if m.UsedSessions > 0 {
		m.UsedSessions--
	}
	m.RemainingSessions++
	if !m.IsActive && m.RemainingSessions > 0 {
		m.IsActive = true
	}
}

// Extend merges an approved package into this ledger: sessions are
// added onto both total and remaining, and the validity window moves
// to the later of the current and the new expiry.
func (m *UserMembership) Extend(sessions int, validUntil time.Time) {
	m.TotalSessions += sessions
	m.RemainingSessions += sessions
	if validUntil.After(m.ValidUntil) {
		m.ValidUntil = validUntil
	}
	if m.RemainingSessions > 0 {
		m.IsActive = true
	}
}
