package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/config"
	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/events"
	"github.com/spec-kit/checkin-agent/internal/geofence"
	"github.com/spec-kit/checkin-agent/internal/kvstore"
	"github.com/spec-kit/checkin-agent/internal/observability"
	"github.com/spec-kit/checkin-agent/internal/observable"
	"github.com/spec-kit/checkin-agent/internal/trace"
	"github.com/spec-kit/checkin-agent/pkg/util/textutil"
)

// GeofenceRegistrar keeps the session geofence and streams confirmed transitions.
type GeofenceRegistrar interface {
	Register(ctx context.Context, center domain.Point, radius float64, sessionID uuid.UUID) (domain.GeofenceRegion, error)
	Unregister(ctx context.Context) error
	Events() <-chan domain.GeofenceEvent
}

// TraceRecorder retains the trace tuple of each session.
type TraceRecorder interface {
	RecordTrace(ctx context.Context, trace domain.TraceData) error
	FinalizeCheckOut(ctx context.Context, traceID string, at time.Time) error
}

type command struct {
	ctx   context.Context
	run   func(context.Context) error
	reply chan error
}

// CheckInService owns the single CheckInSession. Every transition, including
// automatic checkout from geofence events, runs on one loop goroutine in
// arrival order.
type CheckInService struct {
	store       kvstore.Store
	geofences   GeofenceRegistrar
	location    geofence.LocationService
	traces      TraceRecorder
	generator   *trace.Generator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	minDuration time.Duration
	minDistance float64
	now         func() time.Time

	commands  chan command
	done      chan struct{}
	stopped   chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc

	// session and regionID are only touched by the loop goroutine once started.
	session *domain.CheckInSession
	// regionID is the geofence registered for session, empty when none.
	regionID string

	checkedIn   *observable.Value[bool]
	checkInData *observable.Value[*domain.CheckInSession]
	duration    *DurationDisplay
}

// CheckInDependencies bundles collaborators for the check-in service.
type CheckInDependencies struct {
	Store      kvstore.Store
	Geofences  GeofenceRegistrar
	Location   geofence.LocationService
	Traces     TraceRecorder
	Generator  *trace.Generator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Config     config.CheckInConfig
	Now        func() time.Time
}

// NewCheckInService constructs the service. Call Start before submitting commands.
func NewCheckInService(deps CheckInDependencies) *CheckInService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	generator := deps.Generator
	if generator == nil {
		generator = trace.NewGenerator()
	}
	return &CheckInService{
		store:       deps.Store,
		geofences:   deps.Geofences,
		location:    deps.Location,
		traces:      deps.Traces,
		generator:   generator,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		minDuration: deps.Config.MinimumDuration(),
		minDistance: deps.Config.MinimumDistanceMeters,
		now:         now,
		commands:    make(chan command),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		checkedIn:   observable.NewValue(false),
		checkInData: observable.NewValue[*domain.CheckInSession](nil),
		duration:    NewDurationDisplay(now),
	}
}

// Start restores a persisted session and runs the transition loop until ctx
// is done or Close is called.
func (s *CheckInService) Start(ctx context.Context) error {
	err := errors.New("check-in lifecycle already started")
	s.startOnce.Do(func() {
		err = s.start(ctx)
	})
	return err
}

func (s *CheckInService) start(ctx context.Context) error {
	restored, err := kvstore.Restore[*domain.CheckInSession](ctx, s.store, domain.KeyCheckInData)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("restore check-in data: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	defaults, err := kvstore.Changes[bool](loopCtx, s.store, domain.KeyAutomaticCheckoutEnabled)
	if err != nil {
		s.logger.Warn("watching automatic checkout default failed", zap.Error(err))
		defaults = nil
	}

	if restored != nil {
		s.setSession(restored)
		s.logger.Info("check-in restored",
			zap.String("session_id", restored.SessionID.String()),
			zap.String("location", restored.LocationName()))
		if restored.AutomaticCheckoutEnabled {
			if err := s.registerGeofence(ctx, restored); err != nil {
				s.failAutomaticCheckout(ctx, err)
			}
		}
	}

	s.started.Store(true)
	go s.loop(loopCtx, defaults)
	return nil
}

// Close stops the loop and ends all change streams.
func (s *CheckInService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
		if s.started.Load() {
			<-s.stopped
		}
		s.duration.Stop()
		s.duration.Value().Close()
		s.checkedIn.Close()
		s.checkInData.Close()
	})
}

// IsCheckedIn exposes the current state and its changes.
func (s *CheckInService) IsCheckedIn() *observable.Value[bool] {
	return s.checkedIn
}

// CheckInData exposes a copy of the active session, nil when not checked in.
func (s *CheckInService) CheckInData() *observable.Value[*domain.CheckInSession] {
	return s.checkInData
}

// Duration exposes the HH:MM:SS time since check-in.
func (s *CheckInService) Duration() *observable.Value[string] {
	return s.duration.Value()
}

// CheckIn starts a session at the given venue.
func (s *CheckInService) CheckIn(ctx context.Context, input domain.CheckInInput) (*domain.CheckInSession, error) {
	if err := validateCheckIn(input); err != nil {
		return nil, err
	}
	var result *domain.CheckInSession
	err := s.submit(ctx, func(ctx context.Context) error {
		session, err := s.checkIn(ctx, input)
		result = session
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckOut ends the session. It is a no-op when not checked in.
func (s *CheckInService) CheckOut(ctx context.Context) error {
	return s.submit(ctx, s.checkOut)
}

// EnableAutomaticCheckOut registers the venue geofence for the session.
func (s *CheckInService) EnableAutomaticCheckOut(ctx context.Context) error {
	return s.submit(ctx, s.enableAutomaticCheckOut)
}

// DisableAutomaticCheckOut removes the venue geofence for the session.
func (s *CheckInService) DisableAutomaticCheckOut(ctx context.Context) error {
	return s.submit(ctx, s.disableAutomaticCheckOut)
}

// LocationServiceDisabled reports that the OS location toggle was switched
// off. An enabled automatic checkout can no longer work and is turned off.
func (s *CheckInService) LocationServiceDisabled(ctx context.Context) error {
	return s.submit(ctx, func(ctx context.Context) error {
		if s.session == nil || !s.session.AutomaticCheckoutEnabled {
			return nil
		}
		s.failAutomaticCheckout(ctx, domain.NewCheckOutError(domain.LocationUnavailableError, nil))
		return nil
	})
}

func (s *CheckInService) submit(ctx context.Context, run func(context.Context) error) error {
	if !s.started.Load() {
		return domain.ErrLifecycleNotRunning
	}
	cmd := command{ctx: context.WithoutCancel(ctx), run: run, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.stopped:
		return domain.ErrLifecycleNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	// an accepted command always completes, even if the caller gives up
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CheckInService) loop(ctx context.Context, defaults <-chan bool) {
	defer close(s.stopped)
	geofenceEvents := s.geofences.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case cmd := <-s.commands:
			cmd.reply <- cmd.run(cmd.ctx)
		case ev, ok := <-geofenceEvents:
			if !ok {
				geofenceEvents = nil
				continue
			}
			s.handleGeofenceEvent(ctx, ev)
		case enabled, ok := <-defaults:
			if !ok {
				defaults = nil
				continue
			}
			s.handleDefaultChanged(ctx, enabled)
		}
	}
}

func (s *CheckInService) checkIn(ctx context.Context, input domain.CheckInInput) (*domain.CheckInSession, error) {
	if s.session != nil {
		return nil, domain.ErrAlreadyCheckedIn
	}

	traceID, hashed, err := s.generator.GenerateWithHash()
	if err != nil {
		return nil, fmt.Errorf("generate trace id: %w", err)
	}

	now := s.now()
	session := &domain.CheckInSession{
		SessionID:            uuid.New(),
		LocationID:           input.LocationID,
		GroupName:            strings.TrimSpace(input.GroupName),
		StartTimestamp:       now,
		AdditionalProperties: textutil.SanitizeProperties(input.Properties),
		TraceID:              traceID,
		HashedTraceID:        hashed,
	}
	if input.AreaName != nil {
		area := strings.TrimSpace(*input.AreaName)
		session.AreaName = &area
	}
	if input.Center != nil && input.Radius > 0 {
		center := *input.Center
		session.Center = &center
		session.Radius = input.Radius
		session.HasLocationRestriction = true
	}

	// the session is persisted before its trace is retained, so a failed
	// check-in never leaves a trace behind
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	if err := s.traces.RecordTrace(ctx, domain.TraceData{
		TraceID:          traceID,
		HashedTraceID:    hashed,
		LocationName:     session.LocationName(),
		CheckInTimestamp: now,
	}); err != nil {
		if derr := s.store.Delete(ctx, domain.KeyCheckInData); derr != nil && !errors.Is(derr, kvstore.ErrNotFound) {
			s.logger.Error("rolling back check-in data failed", zap.Error(derr))
		}
		return nil, fmt.Errorf("record trace: %w", err)
	}
	s.setSession(session)

	s.metrics.RecordCheckIn()
	s.logger.Info("checked in",
		zap.String("session_id", session.SessionID.String()),
		zap.String("location_id", session.LocationID.String()),
		zap.Bool("location_restricted", session.HasLocationRestriction))
	s.publish(ctx, events.New(events.EventCheckedIn, &session.SessionID, now, events.CheckedInPayload{
		LocationID:   session.LocationID,
		LocationName: session.LocationName(),
	}))

	if session.HasLocationRestriction && s.automaticCheckoutDefault(ctx) {
		if err := s.enableAutomaticCheckOut(ctx); err != nil {
			s.reportAutomaticCheckoutUnavailable(ctx, err)
		}
	}
	return s.session.Clone(), nil
}

func (s *CheckInService) checkOut(ctx context.Context) error {
	if s.session == nil {
		return nil
	}

	skipDistance := s.session.SkipDistanceAssertion
	if skipDistance {
		next := s.session.Clone()
		next.SkipDistanceAssertion = false
		if err := s.persist(ctx, next); err != nil {
			return err
		}
		s.setSession(next)
	}

	if err := s.assertCheckOut(ctx, s.session, !skipDistance); err != nil {
		code, _ := domain.CheckOutErrorCodeOf(err)
		s.metrics.RecordCheckOutFailure(string(domain.TriggerManual), string(code))
		s.logger.Info("checkout rejected", zap.String("code", string(code)), zap.Error(err))
		if code == domain.MissingPermissionError || code == domain.LocationUnavailableError {
			next := s.session.Clone()
			next.SkipDistanceAssertion = true
			if perr := s.persist(ctx, next); perr != nil {
				s.logger.Warn("arming distance skip failed", zap.Error(perr))
			} else {
				s.setSession(next)
			}
		}
		return err
	}
	return s.completeCheckOut(ctx, domain.TriggerManual)
}

// assertCheckOut checks permission, location availability, minimum duration
// and minimum distance, in that order. Location is only consulted when the
// distance is checked.
func (s *CheckInService) assertCheckOut(ctx context.Context, session *domain.CheckInSession, checkDistance bool) error {
	checkDistance = checkDistance && session.HasLocationRestriction && session.Center != nil

	var current domain.Point
	if checkDistance {
		granted, err := s.location.HasPermission(ctx)
		if err != nil || !granted {
			return domain.NewCheckOutError(domain.MissingPermissionError, err)
		}
		enabled, err := s.location.IsLocationServiceEnabled(ctx)
		if err != nil || !enabled {
			return domain.NewCheckOutError(domain.LocationUnavailableError, err)
		}
		current, err = s.location.CurrentLocation(ctx)
		if err != nil {
			return domain.NewCheckOutError(domain.LocationUnavailableError, err)
		}
	}

	if elapsed := s.now().Sub(session.StartTimestamp); elapsed < s.minDuration {
		return domain.NewCheckOutError(domain.MinimumDurationError,
			fmt.Errorf("checked in for %s of %s", elapsed.Round(time.Second), s.minDuration))
	}

	if checkDistance {
		threshold := math.Max(session.Radius, s.minDistance)
		if distance := session.Center.DistanceTo(current); distance < threshold {
			return domain.NewCheckOutError(domain.MinimumDistanceError,
				fmt.Errorf("%.0fm from venue, need %.0fm", distance, threshold))
		}
	}
	return nil
}

func (s *CheckInService) completeCheckOut(ctx context.Context, trigger domain.CheckOutTrigger) error {
	session := s.session
	now := s.now()

	if err := s.traces.FinalizeCheckOut(ctx, session.TraceID, now); err != nil {
		return fmt.Errorf("finalize trace: %w", err)
	}
	if err := s.store.Delete(ctx, domain.KeyCheckInData); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("delete check-in data: %w", err)
	}
	s.unregisterGeofence(ctx)
	s.setSession(nil)

	duration := now.Sub(session.StartTimestamp)
	s.metrics.RecordCheckOut(string(trigger))
	s.logger.Info("checked out",
		zap.String("session_id", session.SessionID.String()),
		zap.String("trigger", string(trigger)),
		zap.Duration("duration", duration))
	s.publish(ctx, events.New(events.EventCheckedOut, &session.SessionID, now, events.CheckedOutPayload{
		LocationName: session.LocationName(),
		Trigger:      trigger,
		Duration:     duration,
	}))
	return nil
}

func (s *CheckInService) enableAutomaticCheckOut(ctx context.Context) error {
	if s.session == nil {
		return domain.ErrNotCheckedIn
	}
	if s.session.AutomaticCheckoutEnabled {
		return nil
	}
	if !s.session.HasLocationRestriction || s.session.Center == nil {
		return fmt.Errorf("%w: venue has no location restriction", domain.ErrInvalidInput)
	}

	if err := s.registerGeofence(ctx, s.session); err != nil {
		return err
	}
	next := s.session.Clone()
	next.AutomaticCheckoutEnabled = true
	if err := s.persist(ctx, next); err != nil {
		s.unregisterGeofence(ctx)
		return err
	}
	s.setSession(next)
	s.logger.Info("automatic checkout enabled", zap.String("session_id", next.SessionID.String()))
	s.publish(ctx, events.New(events.EventAutomaticCheckoutChanged, &next.SessionID, s.now(),
		events.AutomaticCheckoutChangedPayload{Enabled: true}))
	return nil
}

func (s *CheckInService) disableAutomaticCheckOut(ctx context.Context) error {
	if s.session == nil {
		return domain.ErrNotCheckedIn
	}
	if !s.session.AutomaticCheckoutEnabled {
		return nil
	}

	s.unregisterGeofence(ctx)
	next := s.session.Clone()
	next.AutomaticCheckoutEnabled = false
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.setSession(next)
	s.logger.Info("automatic checkout disabled", zap.String("session_id", next.SessionID.String()))
	s.publish(ctx, events.New(events.EventAutomaticCheckoutChanged, &next.SessionID, s.now(),
		events.AutomaticCheckoutChangedPayload{Enabled: false}))
	return nil
}

func (s *CheckInService) handleGeofenceEvent(ctx context.Context, ev domain.GeofenceEvent) {
	session := s.session
	if session == nil || !session.AutomaticCheckoutEnabled || ev.SessionID != session.SessionID ||
		s.regionID == "" || ev.RegionID != s.regionID {
		s.logger.Debug("geofence event ignored",
			zap.String("region_id", ev.RegionID),
			zap.String("transition", string(ev.Transition)))
		return
	}
	if ev.Transition != domain.TransitionExit {
		return
	}

	// departure is already inferred, so distance is not checked
	err := s.assertCheckOut(ctx, session, false)
	if err == nil {
		err = s.completeCheckOut(ctx, domain.TriggerAutomatic)
	}
	if err != nil {
		s.failAutomaticCheckout(ctx, err)
	}
}

func (s *CheckInService) registerGeofence(ctx context.Context, session *domain.CheckInSession) error {
	if !session.HasLocationRestriction || session.Center == nil {
		return fmt.Errorf("%w: venue has no location restriction", domain.ErrInvalidInput)
	}
	region, err := s.geofences.Register(ctx, *session.Center, session.Radius, session.SessionID)
	if err != nil {
		return err
	}
	s.regionID = region.ID
	return nil
}

// unregisterGeofence forgets the region first, so its late events are dropped
// even when the platform call fails.
func (s *CheckInService) unregisterGeofence(ctx context.Context) {
	s.regionID = ""
	if err := s.geofences.Unregister(ctx); err != nil {
		s.logger.Warn("unregistering geofence failed", zap.Error(err))
	}
}

func (s *CheckInService) handleDefaultChanged(ctx context.Context, enabled bool) {
	if !enabled || s.session == nil || !s.session.HasLocationRestriction || s.session.AutomaticCheckoutEnabled {
		return
	}
	if err := s.enableAutomaticCheckOut(ctx); err != nil {
		s.reportAutomaticCheckoutUnavailable(ctx, err)
	}
}

// failAutomaticCheckout turns automatic checkout off and raises one
// notification instead of retrying.
func (s *CheckInService) failAutomaticCheckout(ctx context.Context, cause error) {
	code, _ := domain.CheckOutErrorCodeOf(cause)
	s.metrics.RecordCheckOutFailure(string(domain.TriggerAutomatic), string(code))
	s.logger.Warn("automatic checkout failed", zap.String("code", string(code)), zap.Error(cause))

	if s.session != nil && s.session.AutomaticCheckoutEnabled {
		if err := s.disableAutomaticCheckOut(ctx); err != nil {
			s.logger.Error("disabling automatic checkout failed", zap.Error(err))
		}
	}
	s.reportAutomaticCheckoutUnavailable(ctx, cause)
}

func (s *CheckInService) reportAutomaticCheckoutUnavailable(ctx context.Context, cause error) {
	code, _ := domain.CheckOutErrorCodeOf(cause)
	var sessionID *uuid.UUID
	if s.session != nil {
		id := s.session.SessionID
		sessionID = &id
	}
	s.logger.Debug("automatic checkout unavailable", zap.String("code", string(code)), zap.Error(cause))
	s.publish(ctx, events.New(events.EventAutomaticCheckoutFailed, sessionID, s.now(), events.AutomaticCheckoutFailedPayload{
		Code:             code,
		LocationDisabled: code == domain.LocationUnavailableError,
		Reason:           cause.Error(),
	}))
}

func (s *CheckInService) automaticCheckoutDefault(ctx context.Context) bool {
	enabled, err := kvstore.RestoreOrDefault(ctx, s.store, domain.KeyAutomaticCheckoutEnabled, false)
	if err != nil {
		s.logger.Warn("reading automatic checkout default failed", zap.Error(err))
		return false
	}
	return enabled
}

func (s *CheckInService) persist(ctx context.Context, session *domain.CheckInSession) error {
	if err := kvstore.Persist(ctx, s.store, domain.KeyCheckInData, session); err != nil {
		return fmt.Errorf("persist check-in data: %w", err)
	}
	return nil
}

func (s *CheckInService) setSession(session *domain.CheckInSession) {
	prev := s.session
	s.session = session
	s.checkedIn.Set(session != nil)
	s.checkInData.Set(session.Clone())

	switch {
	case session == nil && prev != nil:
		s.duration.Restart(nil)
	case session != nil && (prev == nil || prev.SessionID != session.SessionID):
		start := session.StartTimestamp
		s.duration.Restart(&start)
	}
}

func (s *CheckInService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateCheckIn(input domain.CheckInInput) error {
	if input.LocationID == uuid.Nil {
		return fmt.Errorf("%w: location id required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.GroupName) == "" {
		return fmt.Errorf("%w: location group name required", domain.ErrInvalidInput)
	}
	if input.Radius < 0 {
		return fmt.Errorf("%w: radius must not be negative", domain.ErrInvalidInput)
	}
	if c := input.Center; c != nil {
		if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
			return fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
		}
	}
	return nil
}
