package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// PointDTO is a WGS84 coordinate.
type PointDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CheckInRequest payload for POST /checkin.
type CheckInRequest struct {
	LocationID string            `json:"location_id"`
	GroupName  string            `json:"group_name"`
	AreaName   *string           `json:"area_name,omitempty"`
	Center     *PointDTO         `json:"center,omitempty"`
	Radius     float64           `json:"radius"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ToggleRequest carries a boolean switch.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// SessionResponse describes the active check-in. The raw trace id is omitted.
type SessionResponse struct {
	SessionID                uuid.UUID         `json:"session_id"`
	LocationID               uuid.UUID         `json:"location_id"`
	LocationName             string            `json:"location_name"`
	GroupName                string            `json:"group_name"`
	AreaName                 *string           `json:"area_name,omitempty"`
	StartedAt                time.Time         `json:"started_at"`
	HasLocationRestriction   bool              `json:"has_location_restriction"`
	Center                   *PointDTO         `json:"center,omitempty"`
	Radius                   float64           `json:"radius,omitempty"`
	AutomaticCheckoutEnabled bool              `json:"automatic_checkout_enabled"`
	SkipDistanceAssertion    bool              `json:"skip_distance_assertion"`
	HashedTraceID            string            `json:"hashed_trace_id"`
	Properties               map[string]string `json:"properties,omitempty"`
}

// CheckInStateResponse is returned by GET /checkin and the transition endpoints.
type CheckInStateResponse struct {
	CheckedIn bool             `json:"checked_in"`
	Session   *SessionResponse `json:"session,omitempty"`
	Duration  string           `json:"duration,omitempty"`
}

// NewSessionResponse maps a session, nil-safe.
func NewSessionResponse(s *domain.CheckInSession) *SessionResponse {
	if s == nil {
		return nil
	}
	resp := &SessionResponse{
		SessionID:                s.SessionID,
		LocationID:               s.LocationID,
		LocationName:             s.LocationName(),
		GroupName:                s.GroupName,
		AreaName:                 s.AreaName,
		StartedAt:                s.StartTimestamp,
		HasLocationRestriction:   s.HasLocationRestriction,
		Radius:                   s.Radius,
		AutomaticCheckoutEnabled: s.AutomaticCheckoutEnabled,
		SkipDistanceAssertion:    s.SkipDistanceAssertion,
		HashedTraceID:            s.HashedTraceID,
		Properties:               s.AdditionalProperties,
	}
	if s.Center != nil {
		resp.Center = &PointDTO{Latitude: s.Center.Latitude, Longitude: s.Center.Longitude}
	}
	return resp
}
