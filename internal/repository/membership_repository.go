package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/studioreform/booking-api/internal/model"
)

// MembershipRepo provides persistence for the session ledgers. Ledger
// arithmetic itself lives on model.UserMembership; this layer only
// loads, locks and persists rows.
type MembershipRepo struct{ DB *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{DB: db} }

const membershipColumns = `id, user_id, package_type, total_sessions, used_sessions, remaining_sessions, valid_until, is_active, created_at`

func scanMembership(scanner interface{ Scan(...any) error }) (model.UserMembership, error) {
	var m model.UserMembership
	err := scanner.Scan(&m.ID, &m.UserID, &m.PackageType, &m.TotalSessions,
		&m.UsedSessions, &m.RemainingSessions, &m.ValidUntil, &m.IsActive, &m.CreatedAt)
	return m, err
}

// GetActiveForUserTx locks and returns the user's active ledger, or
// ErrMembershipNotFound when none exists. The FOR UPDATE lock keeps
// concurrent bookings from double-spending the last session.
func (r *MembershipRepo) GetActiveForUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.UserMembership, error) {
	m, err := scanMembership(tx.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM user_memberships
		 WHERE user_id=? AND is_active=1
		 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, userID))
	if err == sql.ErrNoRows {
		return m, ErrMembershipNotFound
	}
	return m, err
}

// GetLatestForUserTx locks and returns the user's newest ledger
// regardless of its active flag. Cancellation credits target this
// ledger: an exhausted inactive ledger is reactivated by the credit.
func (r *MembershipRepo) GetLatestForUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.UserMembership, error) {
	m, err := scanMembership(tx.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM user_memberships
		 WHERE user_id=? ORDER BY created_at DESC LIMIT 1 FOR UPDATE`, userID))
	if err == sql.ErrNoRows {
		return m, ErrMembershipNotFound
	}
	return m, err
}

// GetLatestForUser returns the user's newest ledger regardless of its
// active flag, for the membership summary endpoint.
func (r *MembershipRepo) GetLatestForUser(ctx context.Context, userID uint64) (model.UserMembership, error) {
	m, err := scanMembership(r.DB.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM user_memberships
		 WHERE user_id=? ORDER BY created_at DESC LIMIT 1`, userID))
	if err == sql.ErrNoRows {
		return m, ErrMembershipNotFound
	}
	return m, err
}

// CreateTx inserts a ledger row and returns its ID.
func (r *MembershipRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.UserMembership) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_memberships (user_id, package_type, total_sessions, used_sessions, remaining_sessions, valid_until, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		m.UserID, m.PackageType, m.TotalSessions, m.UsedSessions, m.RemainingSessions, m.ValidUntil, m.IsActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// SaveBalancesTx persists the mutable part of a ledger after a model
// transition (Debit, Credit or Extend) ran on it.
func (r *MembershipRepo) SaveBalancesTx(ctx context.Context, tx *sql.Tx, m *model.UserMembership) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE user_memberships
		 SET total_sessions=?, used_sessions=?, remaining_sessions=?, valid_until=?, is_active=?
		 WHERE id=?`,
		m.TotalSessions, m.UsedSessions, m.RemainingSessions, m.ValidUntil, m.IsActive, m.ID)
	return err
}

// DeactivateOthersTx flips every ledger of the user except keepID to
// inactive. Run at approval time so at most one ledger is active.
func (r *MembershipRepo) DeactivateOthersTx(ctx context.Context, tx *sql.Tx, userID, keepID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE user_memberships SET is_active=0 WHERE user_id=? AND id<>? AND is_active=1`,
		userID, keepID)
	return err
}

// approvablePurchase is the slice of a purchase row needed to
// materialize a ledger from it.
type approvablePurchase struct {
	ID           uint64
	PackageID    string
	Sessions     int
	ValidityDays int
	ConfirmedAt  sql.NullTime
}

// MaterializeFromPurchaseTx lazily creates a ledger for a member whose
// membership purchase was approved before the ledger table tracked it.
// It locks the newest active membership purchase without a ledger
// back-reference, creates the ledger with the full session balance and
// validity counted from the approval date, and stamps the purchase's
// membership_id so a second call finds nothing to do. Returns
// ErrMembershipNotFound when no such purchase exists.
func (r *MembershipRepo) MaterializeFromPurchaseTx(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) (model.UserMembership, error) {
	var p approvablePurchase
	err := tx.QueryRowContext(ctx,
		`SELECT id, package_id, package_sessions, package_validity_days, confirmed_at
		 FROM purchases
		 WHERE user_id=? AND booking_type=? AND status=? AND membership_id IS NULL
		 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`,
		userID, model.PurchaseTypeMembership, model.PurchaseStatusActive).
		Scan(&p.ID, &p.PackageID, &p.Sessions, &p.ValidityDays, &p.ConfirmedAt)
	if err == sql.ErrNoRows {
		return model.UserMembership{}, ErrMembershipNotFound
	}
	if err != nil {
		return model.UserMembership{}, err
	}

	from := now
	if p.ConfirmedAt.Valid {
		from = p.ConfirmedAt.Time
	}
	m := model.UserMembership{
		UserID:            userID,
		PackageType:       p.PackageID,
		TotalSessions:     p.Sessions,
		UsedSessions:      0,
		RemainingSessions: p.Sessions,
		ValidUntil:        from.AddDate(0, 0, p.ValidityDays),
		IsActive:          true,
	}
	if m.Expired(now) {
		m.IsActive = false
	}
	id, err := r.CreateTx(ctx, tx, &m)
	if err != nil {
		return model.UserMembership{}, err
	}
	m.ID = id
	if _, err := tx.ExecContext(ctx,
		`UPDATE purchases SET membership_id=? WHERE id=?`, id, p.ID); err != nil {
		return model.UserMembership{}, err
	}
	if !m.IsActive {
		return m, ErrMembershipNotFound
	}
	return m, nil
}

// ResolveActiveTx returns the user's active ledger, materializing one
// from an approved purchase if necessary. This is the single entry
// point the booking engine uses to find a ledger to debit.
func (r *MembershipRepo) ResolveActiveTx(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) (model.UserMembership, error) {
	m, err := r.GetActiveForUserTx(ctx, tx, userID)
	if err == nil {
		return m, nil
	}
	if err != ErrMembershipNotFound {
		return m, err
	}
	return r.MaterializeFromPurchaseTx(ctx, tx, userID, now)
}
