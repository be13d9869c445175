package dto

import "github.com/spec-kit/checkin-agent/internal/domain"

// PermissionRequest payload for PUT /platform/permission.
type PermissionRequest struct {
	Granted *bool `json:"granted"`
}

// GeofenceEventRequest payload for POST /platform/geofence-events.
type GeofenceEventRequest struct {
	RegionID   string                    `json:"region_id"`
	Transition domain.GeofenceTransition `json:"transition"`
}

// RegionResponse describes a registered geofence.
type RegionResponse struct {
	ID        string   `json:"id"`
	SessionID string   `json:"session_id"`
	Center    PointDTO `json:"center"`
	Radius    float64  `json:"radius"`
}
