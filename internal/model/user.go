package model

import "time"

// Roles stored in the users.role column and carried in the JWT "role"
// claim. ADMIN unlocks the /v1/admin surface; every registered member
// gets MEMBER.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// User represents a studio member or administrator as stored in the
// `users` table. Phone is kept in whatever format the member typed it;
// normalization to the +220 international format happens only when a
// message is dispatched.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Name           – display name shown to instructors and admins.
//  Email          – unique email address (login identifier).
//  Phone          – contact number for SMS notifications (may be empty).
//  PasswordHash   – bcrypt hashed password.
//  MembershipPlan – free-form plan label chosen at registration.
//  Role           – ADMIN or MEMBER.
//  Status         – account status (Active by default).
//  CreatedAt      – timestamp of registration.
type User struct {
	ID             uint64
	Name           string
	Email          string
	Phone          string
	PasswordHash   string
	MembershipPlan string
	Role           string
	Status         string
	CreatedAt      time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
