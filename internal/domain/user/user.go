package user

import (
	"errors"
	"time"
)

// Role is the closed set of roles the policy engine understands.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	Phone        *string   `json:"phone,omitempty"`
	DistrictID   *string   `json:"district_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type CreateUserRequest struct {
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	FullName   string  `json:"full_name" binding:"required,min=2,max=120"`
	Role       Role    `json:"role" binding:"omitempty,oneof=admin manager sales"`
	Phone      *string `json:"phone" binding:"omitempty,max=30"`
	DistrictID *string `json:"district_id" binding:"omitempty,uuid"`
}

/// a partial update: nil fields are left unchanged.
type UpdateUserRequest struct {
	FullName   *string `json:"full_name" binding:"omitempty,min=2,max=120"`
	Phone      *string `json:"phone" binding:"omitempty,max=30"`
	Role       *Role   `json:"role" binding:"omitempty,oneof=admin manager sales"`
	DistrictID *string `json:"district_id" binding:"omitempty,uuid"`
	IsActive   *bool   `json:"is_active"`
	Password   *string `json:"password" binding:"omitempty,min=8"`
}

type ListUsersFilter struct {
	Role   *Role
	Limit  int
	Offset int
}
