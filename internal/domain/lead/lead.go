package lead

import (
	"errors"
	"time"
)

// Status is a pipeline stage. Transitions are unconstrained: any
// status may follow any other.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusProposal    Status = "proposal"
	StatusNegotiation Status = "negotiation"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusProposal,
		StatusNegotiation, StatusWon, StatusLost:
		return true
	}
	return false
}

type Source string

const (
	SourceManual        Source = "manual"
	SourceWebsite       Source = "website"
	SourceReferral      Source = "referral"
	SourceAdvertisement Source = "advertisement"
	SourceUpload        Source = "upload"
)

func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceWebsite, SourceReferral, SourceAdvertisement, SourceUpload:
		return true
	}
	return false
}

type Lead struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             *string    `json:"email,omitempty"`
	Phone             string     `json:"phone"`
	Company           *string    `json:"company,omitempty"`
	Status            Status     `json:"status"`
	Source            Source     `json:"source"`
	DistrictID        *string    `json:"district_id,omitempty"`
	AssignedTo        *string    `json:"assigned_to,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	Budget            *float64   `json:"budget,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	CreatedBy         *string    `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AssignedToMatches reports whether the lead is assigned to the given user.
func (l Lead) AssignedToMatches(userID string) bool {
	return l.AssignedTo != nil && *l.AssignedTo == userID
}

var ErrNotFound = errors.New("lead not found")

type CreateLeadRequest struct {
	Name              string     `json:"name" binding:"required,min=1,max=200"`
	Email             *string    `json:"email" binding:"omitempty,email"`
	Phone             string     `json:"phone" binding:"required,min=3,max=30"`
	Company           *string    `json:"company" binding:"omitempty,max=200"`
	Status            Status     `json:"status" binding:"omitempty,oneof=new contacted qualified proposal negotiation won lost"`
	Source            Source     `json:"source" binding:"omitempty,oneof=manual website referral advertisement upload"`
	DistrictID        *string    `json:"district_id" binding:"omitempty,uuid"`
	AssignedTo        *string    `json:"assigned_to" binding:"omitempty,uuid"`
	Notes             *string    `json:"notes" binding:"omitempty,max=2000"`
	Budget            *float64   `json:"budget" binding:"omitempty,gte=0"`
	ExpectedCloseDate *time.Time `json:"expected_close_date"`
}

type UpdateLeadRequest struct {
	Name              *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Email             *string    `json:"email" binding:"omitempty,email"`
	Phone             *string    `json:"phone" binding:"omitempty,min=3,max=30"`
	Company           *string    `json:"company" binding:"omitempty,max=200"`
	Status            *Status    `json:"status" binding:"omitempty,oneof=new contacted qualified proposal negotiation won lost"`
	Source            *Source    `json:"source" binding:"omitempty,oneof=manual website referral advertisement upload"`
	DistrictID        *string    `json:"district_id" binding:"omitempty,uuid"`
	AssignedTo        *string    `json:"assigned_to" binding:"omitempty,uuid"`
	Notes             *string    `json:"notes" binding:"omitempty,max=2000"`
	Budget            *float64   `json:"budget" binding:"omitempty,gte=0"`
	ExpectedCloseDate *time.Time `json:"expected_close_date"`
}

type StatusUpdateRequest struct {
	Status Status  `json:"status" binding:"required,oneof=new contacted qualified proposal negotiation won lost"`
	Notes  *string `json:"notes" binding:"omitempty,max=2000"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Status     *Status
	DistrictID *string
	AssignedTo *string
	Source     *Source
	Limit      int
	Offset     int
}
