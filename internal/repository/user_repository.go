package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/utils"
)

// UserRepo provides persistence for studio members and admins.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, phone, password_hash, membership_plan, role, status, created_at`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.MembershipPlan, &u.Role, &u.Status, &u.CreatedAt)
	return u, err
}

// Create inserts a user and returns its ID. The email is normalized
// to lower case; a duplicate yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, name, email, phone, password, plan, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, password_hash, membership_plan, role) VALUES (?,?,?,?,?,?)`,
		name, email, phone, hash, plan, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
}

// UpdateProfile overwrites name, email and phone. A duplicate email
// yields ErrEmailExists.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email, phone string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET name=?, email=?, phone=? WHERE id=?`, name, email, phone, id)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrEmailExists
	}
	return err
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, id)
	return err
}

// ListMembers returns all non-admin users, newest first.
func (r *UserRepo) ListMembers(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role<>? ORDER BY created_at DESC`, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
			&u.MembershipPlan, &u.Role, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountMembers returns the number of non-admin users.
func (r *UserRepo) CountMembers(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role<>?`, model.RoleAdmin).Scan(&n)
	return n, err
}

// AdminPhones returns the phone numbers of all admins with one set.
// Used to notify staff when a member submits a payment.
func (r *UserRepo) AdminPhones(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT phone FROM users WHERE role=? AND phone<>''`, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var phones []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}
