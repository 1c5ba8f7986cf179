package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/studioreform/booking-api/internal/model"
)

// ScheduleRepo provides persistence for weekly schedule templates.
type ScheduleRepo struct{ DB *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{DB: db} }

// ScheduleWithClass is a weekly schedule joined with its class name
// for listings.
type ScheduleWithClass struct {
	model.WeeklySchedule
	ClassName  string
	Instructor string
}

const scheduleColumns = `ws.id, ws.class_id, ws.day_of_week, ws.start_time, ws.end_time, ws.max_capacity, ws.is_active, ws.created_at`

// Create inserts a weekly slot. The UNIQUE(class_id, day_of_week,
// start_time) key turns a duplicate into ErrSlotExists.
func (r *ScheduleRepo) Create(ctx context.Context, ws *model.WeeklySchedule) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO weekly_schedules (class_id, day_of_week, start_time, end_time, max_capacity, is_active)
		 VALUES (?,?,?,?,?,?)`,
		ws.ClassID, ws.DayOfWeek, ws.StartTime, ws.EndTime, ws.MaxCapacity, ws.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrSlotExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one weekly schedule or ErrScheduleNotFound.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (model.WeeklySchedule, error) {
	var ws model.WeeklySchedule
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, class_id, day_of_week, start_time, end_time, max_capacity, is_active, created_at
		 FROM weekly_schedules WHERE id=? LIMIT 1`, id).
		Scan(&ws.ID, &ws.ClassID, &ws.DayOfWeek, &ws.StartTime, &ws.EndTime,
			&ws.MaxCapacity, &ws.IsActive, &ws.CreatedAt)
	if err == sql.ErrNoRows {
		return ws, ErrScheduleNotFound
	}
	return ws, err
}

// List returns weekly schedules joined with class names. When
// activeOnly is set, deactivated slots are filtered out. Ordered by
// weekday (Monday first) then start time, matching the public
// timetable layout.
func (r *ScheduleRepo) List(ctx context.Context, activeOnly bool) ([]ScheduleWithClass, error) {
	q := `SELECT ` + scheduleColumns + `, c.name, c.instructor
	      FROM weekly_schedules ws
	      JOIN classes c ON c.id = ws.class_id`
	if activeOnly {
		q += ` WHERE ws.is_active=1`
	}
	q += ` ORDER BY FIELD(ws.day_of_week,'Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday'), ws.start_time`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScheduleWithClass
	for rows.Next() {
		var s ScheduleWithClass
		if err := rows.Scan(&s.ID, &s.ClassID, &s.DayOfWeek, &s.StartTime, &s.EndTime,
			&s.MaxCapacity, &s.IsActive, &s.CreatedAt, &s.ClassName, &s.Instructor); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListActiveForClass returns the active weekly slots of one class.
// Used when booking "every Monday" by class and weekday.
func (r *ScheduleRepo) ListActiveForClass(ctx context.Context, classID uint64) ([]model.WeeklySchedule, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, class_id, day_of_week, start_time, end_time, max_capacity, is_active, created_at
		 FROM weekly_schedules WHERE class_id=? AND is_active=1 ORDER BY start_time`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WeeklySchedule
	for rows.Next() {
		var ws model.WeeklySchedule
		if err := rows.Scan(&ws.ID, &ws.ClassID, &ws.DayOfWeek, &ws.StartTime, &ws.EndTime,
			&ws.MaxCapacity, &ws.IsActive, &ws.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ListActive returns every active weekly slot, for instance generation
// across the whole timetable.
func (r *ScheduleRepo) ListActive(ctx context.Context) ([]model.WeeklySchedule, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, class_id, day_of_week, start_time, end_time, max_capacity, is_active, created_at
		 FROM weekly_schedules WHERE is_active=1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WeeklySchedule
	for rows.Next() {
		var ws model.WeeklySchedule
		if err := rows.Scan(&ws.ID, &ws.ClassID, &ws.DayOfWeek, &ws.StartTime, &ws.EndTime,
			&ws.MaxCapacity, &ws.IsActive, &ws.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// SetActive toggles a weekly slot. Existing instances are untouched;
// only future generation is affected.
func (r *ScheduleRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE weekly_schedules SET is_active=? WHERE id=?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Delete removes a weekly slot. It refuses with ErrConflict while
// future instances generated from it still exist; past instances keep
// a NULL template reference via the FK's ON DELETE SET NULL.
func (r *ScheduleRepo) Delete(ctx context.Context, id uint64, today string) error {
	var future int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedule_instances WHERE weekly_schedule_id=? AND class_date >= ?`,
		id, today).Scan(&future)
	if err != nil {
		return err
	}
	if future > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM weekly_schedules WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}
