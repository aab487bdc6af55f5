package domain

import (
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRole string

const (
	UserRolePatient UserRole = "PATIENT"
	UserRoleDoctor  UserRole = "DOCTOR"
	UserRoleAdmin   UserRole = "ADMIN"
)

func (r UserRole) IsValid() bool {
	return r == UserRolePatient || r == UserRoleDoctor || r == UserRoleAdmin
}

// Profile is the identity record handed to clients after login.
type Profile struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

type CreateUserDTO struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role" binding:"required,oneof=PATIENT DOCTOR ADMIN"`
}

type UpdateUserDTO struct {
	Name     *string   `json:"name"`
	Email    *string   `json:"email" binding:"omitempty,email"`
	Phone    *string   `json:"phone"`
	Role     *UserRole `json:"role" binding:"omitempty,oneof=PATIENT DOCTOR ADMIN"`
	IsActive *bool     `json:"is_active"`
}

// UpdateProfileDTO is what a user may change about themselves.
type UpdateProfileDTO struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type UserFilter struct {
	Role       *UserRole `json:"role"`
	SearchTerm *string   `json:"search_term"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}
