package models

import (
	"time"
)

// UserRole represents valid user roles
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one the schema accepts
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// User represents a system user
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role" validate:"required,oneof=user admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HasRole checks whether the user satisfies the required role.
// Admins satisfy every check; plain users only the user check.
func (u *User) HasRole(required UserRole) bool {
	if u.Role == UserRoleAdmin {
		return true
	}
	return required == UserRoleUser
}

// RegisterRequest
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=128,containsany=@$!%*#?&"`
}

// LoginRequest
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserProfile - public-facing profile, NO sensitive data
type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile strips the account down to its public fields
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// LoginResponse
type LoginResponse struct {
	Token     string      `json:"token"`
	User      UserProfile `json:"user"`
	ExpiresIn int         `json:"expires_in"` // seconds (client-friendly)
}

// UpdateRoleRequest promotes or demotes a user (admin only)
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}
