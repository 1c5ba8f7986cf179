package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/schedule"
)

// InstanceRepo provides persistence for dated schedule instances. All
// capacity mutations happen through guarded UPDATEs inside a caller
// transaction so the current_bookings counter can never overshoot
// max_capacity or go negative.
type InstanceRepo struct{ DB *sql.DB }

func NewInstanceRepo(db *sql.DB) *InstanceRepo { return &InstanceRepo{DB: db} }

// InstanceWithClass is an instance joined with its class for listings.
type InstanceWithClass struct {
	model.ScheduleInstance
	ClassName  string
	Instructor string
	Difficulty string
	Duration   string
}

const instanceColumns = `id, weekly_schedule_id, class_id, class_date, start_time, end_time, max_capacity, current_bookings, is_active, is_cancelled, created_at`

func scanInstance(scanner interface{ Scan(...any) error }) (model.ScheduleInstance, error) {
	var si model.ScheduleInstance
	err := scanner.Scan(&si.ID, &si.WeeklyScheduleID, &si.ClassID, &si.ClassDate,
		&si.StartTime, &si.EndTime, &si.MaxCapacity, &si.CurrentBookings,
		&si.IsActive, &si.IsCancelled, &si.CreatedAt)
	return si, err
}

// GetByID fetches one instance or ErrInstanceNotFound.
func (r *InstanceRepo) GetByID(ctx context.Context, id uint64) (model.ScheduleInstance, error) {
	si, err := scanInstance(r.DB.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM schedule_instances WHERE id=? LIMIT 1`, id))
	if err == sql.ErrNoRows {
		return si, ErrInstanceNotFound
	}
	return si, err
}

// GetForUpdateTx locks one instance row for the duration of the
// booking transaction and returns it, or ErrInstanceNotFound.
func (r *InstanceRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ScheduleInstance, error) {
	si, err := scanInstance(tx.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM schedule_instances WHERE id=? LIMIT 1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return si, ErrInstanceNotFound
	}
	return si, err
}

// TryIncrementTx atomically takes one spot. The capacity guard lives
// in the WHERE clause, so a full class affects zero rows and yields
// ErrInstanceFull regardless of what the caller read earlier.
func (r *InstanceRepo) TryIncrementTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE schedule_instances SET current_bookings = current_bookings + 1
		 WHERE id=? AND current_bookings < max_capacity AND is_active=1 AND is_cancelled=0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInstanceFull
	}
	return nil
}

// DecrementTx releases one spot after a member cancellation. Floored
// at zero in the WHERE clause.
func (r *InstanceRepo) DecrementTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE schedule_instances SET current_bookings = current_bookings - 1
		 WHERE id=? AND current_bookings > 0`, id)
	return err
}

// GetOrCreateForScheduleTx returns the locked instance of a weekly
// schedule on a given date, creating it on demand. A concurrent insert
// losing the race on UNIQUE(weekly_schedule_id, class_date) falls back
// to re-reading the winner's row.
func (r *InstanceRepo) GetOrCreateForScheduleTx(ctx context.Context, tx *sql.Tx, ws *model.WeeklySchedule, date string) (model.ScheduleInstance, error) {
	selectOne := func() (model.ScheduleInstance, error) {
		return scanInstance(tx.QueryRowContext(ctx,
			`SELECT `+instanceColumns+` FROM schedule_instances
			 WHERE weekly_schedule_id=? AND class_date=? LIMIT 1 FOR UPDATE`,
			ws.ID, date))
	}
	si, err := selectOne()
	if err == nil {
		return si, nil
	}
	if err != sql.ErrNoRows {
		return si, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedule_instances (weekly_schedule_id, class_id, class_date, start_time, end_time, max_capacity)
		 VALUES (?,?,?,?,?,?)`,
		ws.ID, ws.ClassID, date, ws.StartTime, ws.EndTime, ws.MaxCapacity)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return selectOne()
		}
		return model.ScheduleInstance{}, err
	}
	return selectOne()
}

// GenerateForSchedule materializes instances for every occurrence of
// the schedule's weekday within daysAhead of from, skipping dates that
// already have one and the from-date occurrence once its start time
// has passed. Returns how many rows were created. Idempotent:
// re-running over an already covered horizon creates nothing.
func (r *InstanceRepo) GenerateForSchedule(ctx context.Context, ws *model.WeeklySchedule, from time.Time, daysAhead int) (int, error) {
	day, err := schedule.ParseDayOfWeek(ws.DayOfWeek)
	if err != nil {
		return 0, err
	}
	dates, err := schedule.UpcomingOccurrences(day, ws.StartTime, from, daysAhead)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, date := range dates {
		res, err := r.DB.ExecContext(ctx,
			`INSERT INTO schedule_instances (weekly_schedule_id, class_id, class_date, start_time, end_time, max_capacity)
			 SELECT ?,?,?,?,?,? FROM DUAL
			 WHERE NOT EXISTS (
			   SELECT 1 FROM schedule_instances WHERE weekly_schedule_id=? AND class_date=?
			 )`,
			ws.ID, ws.ClassID, date, ws.StartTime, ws.EndTime, ws.MaxCapacity, ws.ID, date)
		if err != nil {
			// a concurrent generator may have inserted the same date
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				continue
			}
			return created, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

// ListUpcoming returns bookable instances joined with class details:
// active, not cancelled, dated today or later. classID filters to one
// class when non-nil.
func (r *InstanceRepo) ListUpcoming(ctx context.Context, today string, classID *uint64) ([]InstanceWithClass, error) {
	q := `SELECT si.id, si.weekly_schedule_id, si.class_id, si.class_date, si.start_time, si.end_time,
	             si.max_capacity, si.current_bookings, si.is_active, si.is_cancelled, si.created_at,
	             c.name, c.instructor, c.difficulty, c.duration
	      FROM schedule_instances si
	      JOIN classes c ON c.id = si.class_id
	      WHERE si.is_active=1 AND si.is_cancelled=0 AND si.class_date >= ?`
	args := []any{today}
	if classID != nil {
		q += ` AND si.class_id=?`
		args = append(args, *classID)
	}
	q += ` ORDER BY si.class_date, si.start_time`
	return r.queryJoined(ctx, q, args...)
}

// ListRange returns instances between dateFrom and dateTo inclusive,
// cancelled ones included, for the admin schedule view.
func (r *InstanceRepo) ListRange(ctx context.Context, dateFrom, dateTo string, classID *uint64) ([]InstanceWithClass, error) {
	q := `SELECT si.id, si.weekly_schedule_id, si.class_id, si.class_date, si.start_time, si.end_time,
	             si.max_capacity, si.current_bookings, si.is_active, si.is_cancelled, si.created_at,
	             c.name, c.instructor, c.difficulty, c.duration
	      FROM schedule_instances si
	      JOIN classes c ON c.id = si.class_id
	      WHERE si.class_date BETWEEN ? AND ?`
	args := []any{dateFrom, dateTo}
	if classID != nil {
		q += ` AND si.class_id=?`
		args = append(args, *classID)
	}
	q += ` ORDER BY si.class_date, si.start_time`
	return r.queryJoined(ctx, q, args...)
}

func (r *InstanceRepo) queryJoined(ctx context.Context, q string, args ...any) ([]InstanceWithClass, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InstanceWithClass
	for rows.Next() {
		var iw InstanceWithClass
		if err := rows.Scan(&iw.ID, &iw.WeeklyScheduleID, &iw.ClassID, &iw.ClassDate,
			&iw.StartTime, &iw.EndTime, &iw.MaxCapacity, &iw.CurrentBookings,
			&iw.IsActive, &iw.IsCancelled, &iw.CreatedAt,
			&iw.ClassName, &iw.Instructor, &iw.Difficulty, &iw.Duration); err != nil {
			return nil, err
		}
		out = append(out, iw)
	}
	return out, rows.Err()
}

// CancelTx marks a locked instance cancelled and inactive. The booking
// counter is left as-is so the admin view still shows how many members
// were affected; affected bookings are compensated separately in the
// same transaction.
func (r *InstanceRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE schedule_instances SET is_cancelled=1, is_active=0 WHERE id=? AND is_cancelled=0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}
