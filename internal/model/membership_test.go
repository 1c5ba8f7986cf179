package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func activeLedger(total int, validUntil time.Time) UserMembership {
	return UserMembership{
		ID:                1,
		UserID:            7,
		PackageType:       "group-8",
		TotalSessions:     total,
		UsedSessions:      0,
		RemainingSessions: total,
		ValidUntil:        validUntil,
		IsActive:          true,
	}
}

func TestDebitHappyPath(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(8, now.AddDate(0, 0, 30))

	assert.NoError(t, m.Debit(now))
	assert.Equal(t, 1, m.UsedSessions)
	assert.Equal(t, 7, m.RemainingSessions)
	assert.True(t, m.IsActive)
}

func TestDebitLastSessionDeactivates(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(1, now.AddDate(0, 0, 30))

	assert.NoError(t, m.Debit(now))
	assert.Equal(t, 0, m.RemainingSessions)
	assert.False(t, m.IsActive)

	// a further debit fails without touching the balances
	err := m.Debit(now)
	assert.ErrorIs(t, err, ErrInsufficientSessions)
	assert.Equal(t, 1, m.UsedSessions)
	assert.Equal(t, 0, m.RemainingSessions)
}

func TestDebitExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(5, now.AddDate(0, 0, -1))

	err := m.Debit(now)
	assert.ErrorIs(t, err, ErrMembershipExpired)
	assert.False(t, m.IsActive, "expired ledger is deactivated as a side effect")
	assert.Equal(t, 5, m.RemainingSessions, "balance untouched on expiry")
}

func TestExpiredBoundary(t *testing.T) {
	until := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	m := activeLedger(5, until)

	assert.False(t, m.Expired(until), "exactly at valid_until is still valid")
	assert.True(t, m.Expired(until.Add(time.Second)))
}

func TestCreditReactivatesExhaustedLedger(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(1, now.AddDate(0, 0, 30))
	assert.NoError(t, m.Debit(now))
	assert.False(t, m.IsActive)

	m.Credit()
	assert.Equal(t, 0, m.UsedSessions)
	assert.Equal(t, 1, m.RemainingSessions)
	assert.True(t, m.IsActive)
}

func TestCreditFloorsUsedAtZero(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(2, now.AddDate(0, 0, 30))

	// credit without a prior debit: an admin cancellation can refund a
	// session that was debited on an earlier, merged ledger
	m.Credit()
	assert.Equal(t, 0, m.UsedSessions)
	assert.Equal(t, 3, m.RemainingSessions, "remaining may exceed total")
}

func TestDebitCreditSymmetry(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(4, now.AddDate(0, 0, 30))

	assert.NoError(t, m.Debit(now))
	assert.NoError(t, m.Debit(now))
	m.Credit()
	m.Credit()

	assert.Equal(t, 0, m.UsedSessions)
	assert.Equal(t, 4, m.RemainingSessions)
	assert.True(t, m.IsActive)
}

func TestExtendMergesPackage(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(4, now.AddDate(0, 0, 10))
	assert.NoError(t, m.Debit(now))

	newExpiry := now.AddDate(0, 0, 30)
	m.Extend(8, newExpiry)

	assert.Equal(t, 12, m.TotalSessions)
	assert.Equal(t, 11, m.RemainingSessions)
	assert.Equal(t, 1, m.UsedSessions)
	assert.Equal(t, newExpiry, m.ValidUntil)
	assert.True(t, m.IsActive)
}

func TestExtendKeepsLaterExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	far := now.AddDate(0, 0, 60)
	m := activeLedger(4, far)

	m.Extend(1, now.AddDate(0, 0, 30))
	assert.Equal(t, far, m.ValidUntil, "extend never shortens validity")
}

func TestExtendReactivates(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m := activeLedger(1, now.AddDate(0, 0, 30))
	assert.NoError(t, m.Debit(now))
	assert.False(t, m.IsActive)

	m.Extend(4, now.AddDate(0, 0, 30))
	assert.True(t, m.IsActive)
	assert.Equal(t, 4, m.RemainingSessions)
}
