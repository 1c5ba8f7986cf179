package repository

import (
	"context"
	"database/sql"

	"github.com/studioreform/booking-api/internal/model"
)

// ClassRepo provides persistence for the class catalog.
type ClassRepo struct{ DB *sql.DB }

func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{DB: db} }

const classColumns = `id, name, instructor, duration, difficulty, capacity, description, image_url, created_at`

// Create inserts a catalog entry and returns its ID.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO classes (name, instructor, duration, difficulty, capacity, description, image_url)
		 VALUES (?,?,?,?,?,?,?)`,
		c.Name, c.Instructor, c.Duration, c.Difficulty, c.Capacity, c.Description, c.ImageURL)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one catalog entry or ErrClassNotFound.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (model.Class, error) {
	var c model.Class
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+classColumns+` FROM classes WHERE id=? LIMIT 1`, id).
		Scan(&c.ID, &c.Name, &c.Instructor, &c.Duration, &c.Difficulty,
			&c.Capacity, &c.Description, &c.ImageURL, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrClassNotFound
	}
	return c, err
}

// List returns the whole catalog ordered by name.
func (r *ClassRepo) List(ctx context.Context) ([]model.Class, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+classColumns+` FROM classes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Instructor, &c.Duration, &c.Difficulty,
			&c.Capacity, &c.Description, &c.ImageURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a catalog entry.
func (r *ClassRepo) Update(ctx context.Context, c *model.Class) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE classes SET name=?, instructor=?, duration=?, difficulty=?, capacity=?, description=?, image_url=?
		 WHERE id=?`,
		c.Name, c.Instructor, c.Duration, c.Difficulty, c.Capacity, c.Description, c.ImageURL, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClassNotFound
	}
	return nil
}

// Delete removes a catalog entry. It refuses with ErrConflict while
// any weekly schedule or dated instance still references the class,
// so history stays intact.
func (r *ClassRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	err := r.DB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM weekly_schedules WHERE class_id=?) +
		        (SELECT COUNT(*) FROM schedule_instances WHERE class_id=?)`,
		id, id).Scan(&refs)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM classes WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClassNotFound
	}
	return nil
}

// EnrolledCounts returns, per class id, how many active bookings exist
// on its future instances. Used by the public catalog listing.
func (r *ClassRepo) EnrolledCounts(ctx context.Context, today string) (map[uint64]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT si.class_id, COUNT(*)
		 FROM class_bookings b
		 JOIN schedule_instances si ON si.id = b.schedule_instance_id
		 WHERE b.status=? AND si.class_date >= ?
		 GROUP BY si.class_id`,
		model.BookingStatusBooked, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uint64]int)
	for rows.Next() {
		var classID uint64
		var n int
		if err := rows.Scan(&classID, &n); err != nil {
			return nil, err
		}
		counts[classID] = n
	}
	return counts, rows.Err()
}
