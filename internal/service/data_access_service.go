package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/checkin-agent/internal/config"
	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/events"
	"github.com/spec-kit/checkin-agent/internal/observability"
	"github.com/spec-kit/checkin-agent/internal/repository"
)

// AccessFetcher retrieves the published accessed-hash set for a time window.
type AccessFetcher interface {
	FetchAccessNotices(ctx context.Context, from, to time.Time) ([]domain.AccessNotice, error)
}

// DataAccessService retains trace tuples and reconciles them against the
// accesses published by health departments.
type DataAccessService struct {
	traces     repository.TraceRepository
	accessed   repository.AccessedTraceRepository
	fetcher    AccessFetcher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	retention  time.Duration
	timeout    time.Duration
	group      singleflight.Group
	now        func() time.Time
}

// DataAccessDependencies bundles collaborators for the data access service.
type DataAccessDependencies struct {
	TraceRepo    repository.TraceRepository
	AccessedRepo repository.AccessedTraceRepository
	Fetcher      AccessFetcher
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Config       config.DataAccessConfig
	Now          func() time.Time
}

// NewDataAccessService constructs the service.
func NewDataAccessService(deps DataAccessDependencies) *DataAccessService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &DataAccessService{
		traces:     deps.TraceRepo,
		accessed:   deps.AccessedRepo,
		fetcher:    deps.Fetcher,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		retention:  deps.Config.Retention(),
		timeout:    deps.Config.FetchTimeout(),
		now:        now,
	}
}

// RecordTrace stores the trace tuple of a fresh session.
func (s *DataAccessService) RecordTrace(ctx context.Context, trace domain.TraceData) error {
	if trace.TraceID == "" || trace.HashedTraceID == "" {
		return fmt.Errorf("%w: trace tuple incomplete", domain.ErrInvalidInput)
	}
	return s.traces.Create(ctx, trace)
}

// FinalizeCheckOut stamps the checkout time on the session's trace tuple.
func (s *DataAccessService) FinalizeCheckOut(ctx context.Context, traceID string, at time.Time) error {
	return s.traces.FinalizeCheckOut(ctx, traceID, at)
}

// Purge removes trace tuples older than the retention window.
func (s *DataAccessService) Purge(ctx context.Context) (int64, error) {
	n, err := s.traces.DeleteOlderThan(ctx, s.cutoff())
	if err != nil {
		return 0, err
	}
	s.metrics.RecordPurge(n)
	if n > 0 {
		s.logger.Debug("purged expired traces", zap.Int64("count", n))
	}
	return n, nil
}

// AccessedTraceData returns every access surfaced so far.
func (s *DataAccessService) AccessedTraceData(ctx context.Context) ([]domain.AccessedTraceData, error) {
	return s.accessed.List(ctx)
}

// FetchRecentlyAccessedTraceData runs one reconciliation cycle and returns
// the accesses concerning retained traces. Concurrent callers share a cycle.
// Network and payload failures leave stored results untouched.
func (s *DataAccessService) FetchRecentlyAccessedTraceData(ctx context.Context) ([]domain.AccessedTraceData, error) {
	// the shared cycle must not die with whichever caller started it; the
	// fetch timeout still bounds it
	cycleCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("fetch", func() (interface{}, error) {
		return s.reconcile(cycleCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.AccessedTraceData), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *DataAccessService) reconcile(ctx context.Context) ([]domain.AccessedTraceData, error) {
	if _, err := s.Purge(ctx); err != nil {
		s.logger.Warn("purging expired traces failed", zap.Error(err))
	}

	now := s.now()
	cutoff := now.Add(-s.retention)
	local, err := s.traces.ListSince(ctx, cutoff)
	if err != nil {
		s.metrics.RecordAccessFetch("storage_error", 0)
		return nil, fmt.Errorf("list traces: %w", err)
	}
	if len(local) == 0 {
		s.metrics.RecordAccessFetch("skipped", 0)
		return []domain.AccessedTraceData{}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	notices, err := s.fetcher.FetchAccessNotices(fetchCtx, cutoff, now)
	if err != nil {
		outcome := "network_error"
		if errors.Is(err, domain.ErrMalformedPayload) {
			outcome = "matching_error"
		}
		s.metrics.RecordAccessFetch(outcome, 0)
		s.logger.Warn("fetching accessed traces failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	matches := Match(local, notices)
	fresh, err := s.accessed.SaveNew(ctx, matches)
	if err != nil {
		s.metrics.RecordAccessFetch("storage_error", 0)
		return nil, fmt.Errorf("store accessed traces: %w", err)
	}
	for _, access := range fresh {
		if err := s.traces.MarkAccessed(ctx, access); err != nil {
			s.logger.Warn("marking trace accessed failed", zap.String("hashed_trace_id", access.HashedTraceID), zap.Error(err))
		}
	}
	s.metrics.RecordAccessFetch("ok", len(fresh))

	if len(fresh) > 0 {
		s.logger.Info("new data accesses found", zap.Int("count", len(fresh)))
		s.publish(ctx, events.New(events.EventDataAccessed, nil, now, events.DataAccessedPayload{Accesses: fresh}))
	}
	return matches, nil
}

func (s *DataAccessService) cutoff() time.Time {
	return s.now().Add(-s.retention)
}

func (s *DataAccessService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
