package district

import (
	"errors"
	"time"
)

// Flat reference entity. Districts are created and deleted by admins,
// never updated.
type District struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	State     *string   `json:"state,omitempty"`
	Region    *string   `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrNotFound = errors.New("district not found")

type CreateDistrictRequest struct {
	Name   string  `json:"name" binding:"required,min=2,max=120"`
	Code   string  `json:"code" binding:"required,min=1,max=16"`
	State  *string `json:"state" binding:"omitempty,max=80"`
	Region *string `json:"region" binding:"omitempty,max=80"`
}
