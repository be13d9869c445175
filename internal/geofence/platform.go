// Package geofence wraps the platform location service and turns its raw
// region transitions into debounced enter/exit events.
package geofence

import (
	"context"
	"errors"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

var (
	// ErrLocationUnavailable is returned when no location fix can be provided.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrUnknownRegion is returned for transitions of regions that are not registered.
	ErrUnknownRegion = errors.New("unknown geofence region")
)

// LocationService is the platform location and geofencing collaborator.
type LocationService interface {
	HasPermission(ctx context.Context) (bool, error)
	IsLocationServiceEnabled(ctx context.Context) (bool, error)
	CurrentLocation(ctx context.Context) (domain.Point, error)
	AddRegion(ctx context.Context, region domain.GeofenceRegion) error
	RemoveRegion(ctx context.Context, regionID string) error
}
