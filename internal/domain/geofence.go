package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const earthRadiusMeters = 6371008.8

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// DistanceTo returns the great-circle distance in meters.
func (p Point) DistanceTo(o Point) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := o.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (o.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// GeofenceTransition enumerates region transitions.
type GeofenceTransition string

const (
	TransitionEnter GeofenceTransition = "ENTER"
	TransitionExit  GeofenceTransition = "EXIT"
)

// GeofenceRegion is a registered circular region bound to one session.
type GeofenceRegion struct {
	ID        string
	SessionID uuid.UUID
	Center    Point
	Radius    float64
}

// GeofenceEvent is a transition reported for a region.
type GeofenceEvent struct {
	RegionID   string
	SessionID  uuid.UUID
	Transition GeofenceTransition
	OccurredAt time.Time
}
