package geofence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/observability"
)

// Options configures region sizing and exit confirmation.
type Options struct {
	Dwell     time.Duration
	MinRadius float64
	MaxRadius float64
}

// Controller keeps at most one active region and confirms exits after the
// dwell interval. Confirmed events are read from Events.
type Controller struct {
	platform LocationService
	opts     Options
	logger   *zap.Logger
	metrics  *observability.Metrics

	// regMu serializes Register/Unregister against the platform.
	regMu sync.Mutex

	mu         sync.Mutex
	region     *domain.GeofenceRegion
	pending    *time.Timer
	generation uint64

	events chan domain.GeofenceEvent
	done   chan struct{}
	once   sync.Once
}

// NewController creates a controller over the platform service.
func NewController(platform LocationService, opts Options, logger *zap.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		platform: platform,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		events:   make(chan domain.GeofenceEvent, 16),
		done:     make(chan struct{}),
	}
}

// Events streams ENTER events immediately and EXIT events once confirmed.
func (c *Controller) Events() <-chan domain.GeofenceEvent {
	return c.events
}

// Register creates the region for sessionID, replacing any prior region.
// It fails with MISSING_PERMISSION_ERROR or LOCATION_UNAVAILABLE_ERROR and
// never retries.
func (c *Controller) Register(ctx context.Context, center domain.Point, radius float64, sessionID uuid.UUID) (domain.GeofenceRegion, error) {
	if err := c.assertUsable(ctx); err != nil {
		return domain.GeofenceRegion{}, err
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()

	if err := c.removeActive(ctx); err != nil {
		return domain.GeofenceRegion{}, err
	}

	region := domain.GeofenceRegion{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Center:    center,
		Radius:    c.clampRadius(radius),
	}
	if err := c.platform.AddRegion(ctx, region); err != nil {
		return domain.GeofenceRegion{}, fmt.Errorf("add geofence region: %w", err)
	}

	c.mu.Lock()
	c.region = &region
	c.mu.Unlock()

	c.logger.Info("geofence registered",
		zap.String("region_id", region.ID),
		zap.String("session_id", sessionID.String()),
		zap.Float64("radius", region.Radius))
	return region, nil
}

// Unregister removes the active region. Calling it without a region is a no-op.
func (c *Controller) Unregister(ctx context.Context) error {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	return c.removeActive(ctx)
}

// Active returns the registered region, if any.
func (c *Controller) Active() (domain.GeofenceRegion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.region == nil {
		return domain.GeofenceRegion{}, false
	}
	return *c.region, true
}

// HandleTransition is the platform callback. It only schedules or cancels
// work; session state is never touched here.
func (c *Controller) HandleTransition(ev domain.GeofenceEvent) {
	c.mu.Lock()
	if c.region == nil || c.region.ID != ev.RegionID {
		c.mu.Unlock()
		c.metrics.RecordGeofenceEvent(string(ev.Transition), "stale")
		return
	}

	switch ev.Transition {
	case domain.TransitionEnter:
		if c.pending != nil {
			c.pending.Stop()
			c.pending = nil
			c.generation++
			c.mu.Unlock()
			c.metrics.RecordGeofenceEvent(string(domain.TransitionExit), "cancelled")
			c.logger.Debug("pending geofence exit cancelled", zap.String("region_id", ev.RegionID))
		} else {
			c.mu.Unlock()
		}
		c.metrics.RecordGeofenceEvent(string(ev.Transition), "confirmed")
		c.emit(ev)
	case domain.TransitionExit:
		if c.pending != nil {
			c.mu.Unlock()
			return
		}
		c.generation++
		gen := c.generation
		c.pending = time.AfterFunc(c.opts.Dwell, func() { c.confirmExit(gen, ev) })
		c.mu.Unlock()
		c.metrics.RecordGeofenceEvent(string(ev.Transition), "pending")
	default:
		c.mu.Unlock()
	}
}

// Close stops pending confirmations and releases waiting senders.
func (c *Controller) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		if c.pending != nil {
			c.pending.Stop()
			c.pending = nil
		}
		c.generation++
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Controller) confirmExit(gen uint64, ev domain.GeofenceEvent) {
	c.mu.Lock()
	if gen != c.generation || c.region == nil || c.region.ID != ev.RegionID {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.mu.Unlock()

	c.metrics.RecordGeofenceEvent(string(ev.Transition), "confirmed")
	c.logger.Info("geofence exit confirmed", zap.String("region_id", ev.RegionID))
	c.emit(ev)
}

func (c *Controller) emit(ev domain.GeofenceEvent) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) removeActive(ctx context.Context) error {
	c.mu.Lock()
	region := c.region
	c.region = nil
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.generation++
	c.mu.Unlock()

	if region == nil {
		return nil
	}
	if err := c.platform.RemoveRegion(ctx, region.ID); err != nil {
		return fmt.Errorf("remove geofence region: %w", err)
	}
	c.logger.Info("geofence unregistered", zap.String("region_id", region.ID))
	return nil
}

func (c *Controller) assertUsable(ctx context.Context) error {
	granted, err := c.platform.HasPermission(ctx)
	if err != nil {
		return domain.NewCheckOutError(domain.MissingPermissionError, err)
	}
	if !granted {
		return domain.NewCheckOutError(domain.MissingPermissionError, nil)
	}
	enabled, err := c.platform.IsLocationServiceEnabled(ctx)
	if err != nil {
		return domain.NewCheckOutError(domain.LocationUnavailableError, err)
	}
	if !enabled {
		return domain.NewCheckOutError(domain.LocationUnavailableError, nil)
	}
	return nil
}

func (c *Controller) clampRadius(radius float64) float64 {
	if c.opts.MinRadius > 0 && radius < c.opts.MinRadius {
		return c.opts.MinRadius
	}
	if c.opts.MaxRadius > 0 && radius > c.opts.MaxRadius {
		return c.opts.MaxRadius
	}
	return radius
}
