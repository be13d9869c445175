package geofence

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

type bridgeRegion struct {
	region domain.GeofenceRegion
	inside *bool
}

// DeviceBridge is the in-process LocationService fed by the OS-side bridge.
// Permission, location service state and fixes are pushed in; region
// transitions are reported either explicitly or derived from fixes.
type DeviceBridge struct {
	mu             sync.RWMutex
	permission     bool
	serviceEnabled bool
	location       *domain.Point
	regions        map[string]*bridgeRegion
	handler        func(domain.GeofenceEvent)
	now            func() time.Time
}

// NewDeviceBridge creates a bridge with no permission and the location service disabled.
func NewDeviceBridge() *DeviceBridge {
	return &DeviceBridge{
		regions: make(map[string]*bridgeRegion),
		now:     time.Now,
	}
}

// SetTransitionHandler installs the callback receiving region transitions.
func (b *DeviceBridge) SetTransitionHandler(h func(domain.GeofenceEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// SetPermission records whether location permission is granted.
func (b *DeviceBridge) SetPermission(granted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.permission = granted
}

// SetLocationServiceEnabled records the OS location toggle.
func (b *DeviceBridge) SetLocationServiceEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serviceEnabled = enabled
}

// UpdateLocation stores a fix and reports derived region transitions.
func (b *DeviceBridge) UpdateLocation(p domain.Point) {
	b.mu.Lock()
	b.location = &p
	var events []domain.GeofenceEvent
	for _, r := range b.regions {
		inside := r.region.Center.DistanceTo(p) <= r.region.Radius
		if r.inside != nil && *r.inside != inside {
			transition := domain.TransitionExit
			if inside {
				transition = domain.TransitionEnter
			}
			events = append(events, domain.GeofenceEvent{
				RegionID:   r.region.ID,
				SessionID:  r.region.SessionID,
				Transition: transition,
				OccurredAt: b.now(),
			})
		}
		r.inside = &inside
	}
	handler := b.handler
	b.mu.Unlock()

	if handler == nil {
		return
	}
	for _, ev := range events {
		handler(ev)
	}
}

// ReportTransition delivers a transition raised by the OS geofencing API.
func (b *DeviceBridge) ReportTransition(regionID string, transition domain.GeofenceTransition) error {
	b.mu.Lock()
	r, ok := b.regions[regionID]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownRegion
	}
	inside := transition == domain.TransitionEnter
	r.inside = &inside
	ev := domain.GeofenceEvent{
		RegionID:   r.region.ID,
		SessionID:  r.region.SessionID,
		Transition: transition,
		OccurredAt: b.now(),
	}
	handler := b.handler
	b.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
	return nil
}

func (b *DeviceBridge) HasPermission(context.Context) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.permission, nil
}

func (b *DeviceBridge) IsLocationServiceEnabled(context.Context) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.serviceEnabled, nil
}

func (b *DeviceBridge) CurrentLocation(context.Context) (domain.Point, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.serviceEnabled || b.location == nil {
		return domain.Point{}, ErrLocationUnavailable
	}
	return *b.location, nil
}

func (b *DeviceBridge) AddRegion(_ context.Context, region domain.GeofenceRegion) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &bridgeRegion{region: region}
	if b.location != nil {
		inside := region.Center.DistanceTo(*b.location) <= region.Radius
		r.inside = &inside
	}
	b.regions[region.ID] = r
	return nil
}

func (b *DeviceBridge) RemoveRegion(_ context.Context, regionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.regions, regionID)
	return nil
}

// Regions lists the currently registered regions.
func (b *DeviceBridge) Regions() []domain.GeofenceRegion {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.GeofenceRegion, 0, len(b.regions))
	for _, r := range b.regions {
		out = append(out, r.region)
	}
	return out
}
