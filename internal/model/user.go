package model

import (
	"strings"
	"time"
)

// Roles a staff account may hold.
const (
	RoleAdmin    = "Admin"
	RoleEmployee = "Employee"
)

// User represents a staff account as stored in the `users` table.
// The password hash never leaves the server.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Fullname     – display name.
//	Username     – login name, unique ignoring case.
//	PasswordHash – bcrypt hashed password.
//	Role         – Admin or Employee.
//	IsActive     – inactive accounts cannot log in.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Fullname     string    `json:"fullname"`   // users.fullname
	Username     string    `json:"username"`   // users.username
	PasswordHash string    `json:"-"`          // users.password_hash
	Role         string    `json:"role"`       // users.role
	IsActive     bool      `json:"is_active"`  // users.is_active
	CreatedAt    time.Time `json:"created_at"` // users.created_at
	UpdatedAt    time.Time `json:"updated_at"` // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// NormalizeKey returns the canonical form used by the case-insensitive
// unique indexes (name_key, group_key, username_key).
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
