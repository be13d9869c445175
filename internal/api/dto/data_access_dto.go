package dto

import (
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// AccessedTraceResponse is one surfaced data access.
type AccessedTraceResponse struct {
	HashedTraceID        string     `json:"hashed_trace_id"`
	LocationName         string     `json:"location_name"`
	HealthDepartmentID   string     `json:"health_department_id"`
	HealthDepartmentName string     `json:"health_department_name"`
	AccessedAt           time.Time  `json:"accessed_at"`
	CheckInAt            time.Time  `json:"check_in_at"`
	CheckOutAt           *time.Time `json:"check_out_at,omitempty"`
}

// NewAccessedTraceResponses maps accesses for the API.
func NewAccessedTraceResponses(items []domain.AccessedTraceData) []AccessedTraceResponse {
	out := make([]AccessedTraceResponse, 0, len(items))
	for _, a := range items {
		out = append(out, AccessedTraceResponse{
			HashedTraceID:        a.HashedTraceID,
			LocationName:         a.LocationName,
			HealthDepartmentID:   a.HealthDepartmentID,
			HealthDepartmentName: a.HealthDepartmentName,
			AccessedAt:           a.AccessTimestamp,
			CheckInAt:            a.CheckInTimestamp,
			CheckOutAt:           a.CheckOutTimestamp,
		})
	}
	return out
}
