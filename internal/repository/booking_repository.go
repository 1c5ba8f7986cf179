package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/studioreform/booking-api/internal/model"
)

// BookingRepo provides persistence for class bookings. Every method
// that takes part in the booking state machine runs on the caller's
// transaction so capacity counters, ledger balances and booking rows move
// together.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

// BookingDetail is a booking joined with its instance and class for
// member-facing listings.
type BookingDetail struct {
	model.ClassBooking
	ClassID    uint64
	ClassName  string
	Instructor string
	ClassDate  string
	StartTime  string
	EndTime    string
}

// HasActiveBookingTx reports whether the user already holds a booked
// spot on the instance. Cancelled bookings do not count, so a member
// who cancelled may book the same class again.
func (r *BookingRepo) HasActiveBookingTx(ctx context.Context, tx *sql.Tx, userID, instanceID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM class_bookings WHERE user_id=? AND schedule_instance_id=? AND status=? LIMIT 1`,
		userID, instanceID, model.BookingStatusBooked).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateTx inserts a booked row and returns its ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, instanceID uint64) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO class_bookings (user_id, schedule_instance_id, status) VALUES (?,?,?)`,
		userID, instanceID, model.BookingStatusBooked)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetForUpdateTx locks one booking row and returns it, or
// ErrBookingNotFound.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ClassBooking, error) {
	var b model.ClassBooking
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, schedule_instance_id, status, attended_at, cancelled_at, created_at
		 FROM class_bookings WHERE id=? LIMIT 1 FOR UPDATE`, id).
		Scan(&b.ID, &b.UserID, &b.ScheduleInstanceID, &b.Status, &b.AttendedAt, &b.CancelledAt, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return b, ErrBookingNotFound
	}
	return b, err
}

// GetOwnedForUpdateTx locks one booking row and verifies the caller
// owns it, returning ErrForbidden when it belongs to someone else.
func (r *BookingRepo) GetOwnedForUpdateTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (model.ClassBooking, error) {
	b, err := r.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return b, err
	}
	if b.UserID != userID {
		return model.ClassBooking{}, ErrForbidden
	}
	return b, nil
}

// MarkCancelledTx flips a booked row to the given cancelled status
// (member or admin initiated) and stamps cancelled_at.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64, status string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE class_bookings SET status=?, cancelled_at=? WHERE id=? AND status=?`,
		status, now, id, model.BookingStatusBooked)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// BookedSpot identifies one active booking and its owner, as needed
// for admin bulk cancellation and the resulting notifications.
type BookedSpot struct {
	BookingID uint64
	UserID    uint64
	Phone     string
}

// ListBookedByInstanceTx returns the locked active bookings on an
// instance, with each owner's id and phone, for admin bulk
// cancellation.
func (r *BookingRepo) ListBookedByInstanceTx(ctx context.Context, tx *sql.Tx, instanceID uint64) ([]BookedSpot, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT b.id, b.user_id, u.phone
		 FROM class_bookings b
		 JOIN users u ON u.id = b.user_id
		 WHERE b.schedule_instance_id=? AND b.status=? FOR UPDATE`,
		instanceID, model.BookingStatusBooked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookedSpot
	for rows.Next() {
		var rec BookedSpot
		if err := rows.Scan(&rec.BookingID, &rec.UserID, &rec.Phone); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkAttendanceTx records the outcome of a finished class: bookings
// whose ids appear in attended become attended, every other still
// booked row on the instance becomes no_show.
func (r *BookingRepo) MarkAttendanceTx(ctx context.Context, tx *sql.Tx, instanceID uint64, attended []uint64, now time.Time) (int, int, error) {
	attendedCount := 0
	for _, id := range attended {
		res, err := tx.ExecContext(ctx,
			`UPDATE class_bookings SET status=?, attended_at=?
			 WHERE id=? AND schedule_instance_id=? AND status=?`,
			model.BookingStatusAttended, now, id, instanceID, model.BookingStatusBooked)
		if err != nil {
			return 0, 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			attendedCount++
		}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE class_bookings SET status=? WHERE schedule_instance_id=? AND status=?`,
		model.BookingStatusNoShow, instanceID, model.BookingStatusBooked)
	if err != nil {
		return 0, 0, err
	}
	noShows, _ := res.RowsAffected()
	return attendedCount, int(noShows), nil
}

// ListByUser returns a member's bookings joined with class details,
// soonest class first. Terminal bookings are included so the member
// sees their history.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.schedule_instance_id, b.status, b.attended_at, b.cancelled_at, b.created_at,
		        si.class_id, c.name, c.instructor, si.class_date, si.start_time, si.end_time
		 FROM class_bookings b
		 JOIN schedule_instances si ON si.id = b.schedule_instance_id
		 JOIN classes c ON c.id = si.class_id
		 WHERE b.user_id=?
		 ORDER BY si.class_date DESC, si.start_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookingDetail
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.ScheduleInstanceID, &d.Status,
			&d.AttendedAt, &d.CancelledAt, &d.CreatedAt,
			&d.ClassID, &d.ClassName, &d.Instructor, &d.ClassDate, &d.StartTime, &d.EndTime); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RosterEntry is one booking on an instance together with the member's
// name and phone, for the admin roster and attendance screen.
type RosterEntry struct {
	Booking  model.ClassBooking
	UserName string
	Phone    string
}

// ListByInstance returns every booking on an instance with the owner's
// name, for the admin roster and attendance screen.
func (r *BookingRepo) ListByInstance(ctx context.Context, instanceID uint64) ([]RosterEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.schedule_instance_id, b.status, b.attended_at, b.cancelled_at, b.created_at,
		        u.name, u.phone
		 FROM class_bookings b
		 JOIN users u ON u.id = b.user_id
		 WHERE b.schedule_instance_id=?
		 ORDER BY u.name`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RosterEntry
	for rows.Next() {
		var rec RosterEntry
		if err := rows.Scan(&rec.Booking.ID, &rec.Booking.UserID, &rec.Booking.ScheduleInstanceID,
			&rec.Booking.Status, &rec.Booking.AttendedAt, &rec.Booking.CancelledAt,
			&rec.Booking.CreatedAt, &rec.UserName, &rec.Phone); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountOnDate returns how many active bookings sit on instances dated
// that day. Used by the admin dashboard.
func (r *BookingRepo) CountOnDate(ctx context.Context, date string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_bookings b
		 JOIN schedule_instances si ON si.id = b.schedule_instance_id
		 WHERE si.class_date=? AND b.status=?`, date, model.BookingStatusBooked).Scan(&n)
	return n, err
}

// RecentBooking is one row of the admin dashboard activity feed.
type RecentBooking struct {
	BookingID uint64
	UserName  string
	ClassName string
	ClassDate string
	StartTime string
	Status    string
	CreatedAt time.Time
}

// Recent returns the latest bookings across all members for the admin
// dashboard feed.
func (r *BookingRepo) Recent(ctx context.Context, limit int) ([]RecentBooking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, u.name, c.name, si.class_date, si.start_time, b.status, b.created_at
		 FROM class_bookings b
		 JOIN users u ON u.id = b.user_id
		 JOIN schedule_instances si ON si.id = b.schedule_instance_id
		 JOIN classes c ON c.id = si.class_id
		 ORDER BY b.created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecentBooking
	for rows.Next() {
		var rec RecentBooking
		if err := rows.Scan(&rec.BookingID, &rec.UserName, &rec.ClassName,
			&rec.ClassDate, &rec.StartTime, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
