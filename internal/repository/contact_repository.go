package repository

import (
	"context"
	"database/sql"

	"github.com/studioreform/booking-api/internal/model"
)

// ContactRepo persists contact form submissions.
type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

// Create inserts a submission with status New.
func (r *ContactRepo) Create(ctx context.Context, m *model.ContactMessage) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, phone, subject, message) VALUES (?,?,?,?,?)`,
		m.Name, m.Email, m.Phone, m.Subject, m.Message)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns submissions newest first for the admin inbox.
func (r *ContactRepo) List(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, email, phone, subject, message, status, created_at
		 FROM contact_messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ContactMessage
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject,
			&m.Message, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetStatus moves a message through the New -> Read -> Responded flow.
func (r *ContactRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE contact_messages SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
