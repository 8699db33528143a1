package users

import "time"

// RoleType represents a user's access level.
type RoleType string

const (
	RoleUser  RoleType = "user"  // Regular dashboard user
	RoleAdmin RoleType = "admin" // Can approve accounts and manage users
)

type User struct {
	ID           string    `json:"id,omitempty"`       // Unique identifier for the user
	Username     string    `json:"username,omitempty"` // Unique username
	PasswordHash string    `json:"-"`                  // Hashed version of the user's password - never serialize
	Role         RoleType  `json:"role,omitempty"`
	IsActive     bool      `json:"is_active"`            // Inactive accounts cannot log in
	CreatedAt    time.Time `json:"created_at,omitempty"` // When the account was created
	LastLoginAt  time.Time `json:"last_login,omitempty"` // Last successful login, zero if never
}

// IsAdmin returns true if the user has admin privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
