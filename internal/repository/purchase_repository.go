package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/studioreform/booking-api/internal/model"
)

// PurchaseRepo provides persistence for the purchase workflow.
type PurchaseRepo struct{ DB *sql.DB }

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{DB: db} }

// PurchaseWithUser is a purchase joined with the buyer's identity for
// the admin approval queue.
type PurchaseWithUser struct {
	model.Purchase
	UserName  string
	UserEmail string
	UserPhone string
}

const purchaseColumns = `id, user_id, booking_type, package_id, package_sessions, package_validity_days, amount, status, payment_status, payment_method, reference_number, membership_id, rejection_reason, created_at, confirmed_at, cancelled_at`

func scanPurchase(scanner interface{ Scan(...any) error }) (model.Purchase, error) {
	var p model.Purchase
	var method, reason sql.NullString
	err := scanner.Scan(&p.ID, &p.UserID, &p.BookingType, &p.PackageID,
		&p.PackageSessions, &p.PackageValidityDays, &p.Amount, &p.Status,
		&p.PaymentStatus, &method, &p.ReferenceNumber, &p.MembershipID,
		&reason, &p.CreatedAt, &p.ConfirmedAt, &p.CancelledAt)
	p.PaymentMethod = method.String
	p.RejectionReason = reason.String
	return p, err
}

// Create inserts a purchase in pending_payment/pending state and
// returns its ID.
func (r *PurchaseRepo) Create(ctx context.Context, p *model.Purchase) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO purchases (user_id, booking_type, package_id, package_sessions, package_validity_days,
		                        amount, status, payment_status, reference_number)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.BookingType, p.PackageID, p.PackageSessions, p.PackageValidityDays,
		p.Amount, p.Status, p.PaymentStatus, p.ReferenceNumber)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one purchase or ErrPurchaseNotFound.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (model.Purchase, error) {
	p, err := scanPurchase(r.DB.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id=? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return p, ErrPurchaseNotFound
	}
	return p, err
}

// GetForUpdateTx locks one purchase row for a status transition.
func (r *PurchaseRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Purchase, error) {
	p, err := scanPurchase(tx.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id=? LIMIT 1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return p, ErrPurchaseNotFound
	}
	return p, err
}

// SubmitPaymentTx moves a locked pending_payment purchase to
// pending_admin_approval, recording the payment method the member
// used.
func (r *PurchaseRepo) SubmitPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, method string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE purchases SET status=?, payment_status=?, payment_method=?
		 WHERE id=? AND status=?`,
		model.PurchaseStatusPendingApproval, model.PaymentStatusSubmitted, method,
		id, model.PurchaseStatusPendingPayment)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// ConfirmTx moves a locked pending_payment class purchase straight to
// confirmed with a verified payment. Class purchases skip admin review
// and never fund the ledger.
func (r *PurchaseRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, method string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE purchases SET status=?, payment_status=?, payment_method=?, confirmed_at=?
		 WHERE id=? AND status=?`,
		model.PurchaseStatusConfirmed, model.PaymentStatusVerified, method, now,
		id, model.PurchaseStatusPendingPayment)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// ApproveTx moves a locked pending_admin_approval purchase to active
// with a verified payment and stamps confirmed_at.
func (r *PurchaseRepo) ApproveTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE purchases SET status=?, payment_status=?, confirmed_at=?
		 WHERE id=? AND status=?`,
		model.PurchaseStatusActive, model.PaymentStatusVerified, now,
		id, model.PurchaseStatusPendingApproval)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// RejectTx moves a locked pending_admin_approval purchase to rejected
// with the admin's reason.
func (r *PurchaseRepo) RejectTx(ctx context.Context, tx *sql.Tx, id uint64, reason string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE purchases SET status=?, payment_status=?, rejection_reason=?
		 WHERE id=? AND status=?`,
		model.PurchaseStatusRejected, model.PaymentStatusRejected, reason,
		id, model.PurchaseStatusPendingApproval)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// SetMembershipTx stamps the ledger a purchase funded.
func (r *PurchaseRepo) SetMembershipTx(ctx context.Context, tx *sql.Tx, purchaseID, membershipID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE purchases SET membership_id=? WHERE id=?`, membershipID, purchaseID)
	return err
}

// ListByUser returns a member's purchases, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Purchase, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPendingApproval returns the admin approval queue joined with
// buyer identities, oldest submission first so staff work in order.
func (r *PurchaseRepo) ListPendingApproval(ctx context.Context) ([]PurchaseWithUser, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.user_id, p.booking_type, p.package_id, p.package_sessions, p.package_validity_days,
		        p.amount, p.status, p.payment_status, p.payment_method, p.reference_number, p.membership_id,
		        p.rejection_reason, p.created_at, p.confirmed_at, p.cancelled_at,
		        u.name, u.email, u.phone
		 FROM purchases p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.status=?
		 ORDER BY p.created_at ASC`, model.PurchaseStatusPendingApproval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseWithUser
	for rows.Next() {
		var pw PurchaseWithUser
		var method, reason sql.NullString
		if err := rows.Scan(&pw.ID, &pw.UserID, &pw.BookingType, &pw.PackageID,
			&pw.PackageSessions, &pw.PackageValidityDays, &pw.Amount, &pw.Status,
			&pw.PaymentStatus, &method, &pw.ReferenceNumber, &pw.MembershipID,
			&reason, &pw.CreatedAt, &pw.ConfirmedAt, &pw.CancelledAt,
			&pw.UserName, &pw.UserEmail, &pw.UserPhone); err != nil {
			return nil, err
		}
		pw.PaymentMethod = method.String
		pw.RejectionReason = reason.String
		out = append(out, pw)
	}
	return out, rows.Err()
}

// CountPendingApproval returns the approval queue depth for the admin
// dashboard.
func (r *PurchaseRepo) CountPendingApproval(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchases WHERE status=?`, model.PurchaseStatusPendingApproval).Scan(&n)
	return n, err
}
