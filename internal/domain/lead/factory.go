package lead

import (
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest stamps the server-assigned id and timestamps.
// Client-supplied values for those fields are never accepted.
func NewFromCreateRequest(req CreateLeadRequest, createdBy string) Lead {
	now := time.Now().UTC()

	status := req.Status
	if status == "" {
		status = StatusNew
	}

	source := req.Source
	if source == "" {
		source = SourceManual
	}

	return Lead{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Company:           req.Company,
		Status:            status,
		Source:            source,
		DistrictID:        req.DistrictID,
		AssignedTo:        req.AssignedTo,
		Notes:             req.Notes,
		Budget:            req.Budget,
		ExpectedCloseDate: req.ExpectedCloseDate,
		CreatedBy:         &createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
