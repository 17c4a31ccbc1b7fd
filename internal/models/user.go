package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	IsVerified   bool       `db:"is_verified" json:"isVerified"`
	Avatar       *string    `db:"avatar" json:"avatar"`
	Bio          *string    `db:"bio" json:"bio"`
	Website      *string    `db:"website" json:"website"`
	Location     *string    `db:"location" json:"location"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// PublicUser is the instructor/reviewer shape embedded in course payloads.
type PublicUser struct {
	ID     string  `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	Email  string  `db:"email" json:"email"`
	Avatar *string `db:"avatar" json:"avatar"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination derives page metadata from a total count.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	totalPages := (total + limit - 1) / limit
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=student teacher admin"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries partial profile updates. Nil fields are ignored;
// email changes are not accepted through this payload.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Website  *string `json:"website"`
	Location *string `json:"location"`
}

// ChangePasswordRequest carries a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// AuthResponse pairs a sanitized user with a signed token.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
