package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// AccessFetcher runs one data-access reconciliation cycle.
type AccessFetcher interface {
	FetchRecentlyAccessedTraceData(ctx context.Context) ([]domain.AccessedTraceData, error)
}

// AccessSyncWorker periodically reconciles retained traces against the
// accesses published by health departments. Failed cycles are logged and
// retried on the next tick.
type AccessSyncWorker struct {
	fetcher  AccessFetcher
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// NewAccessSyncWorker creates a worker but does not start it.
func NewAccessSyncWorker(fetcher AccessFetcher, interval time.Duration, logger *zap.Logger) *AccessSyncWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessSyncWorker{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs one cycle immediately, then one per interval, until ctx is
// cancelled or Stop is called.
func (w *AccessSyncWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	w.logger.Info("access sync worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to exit and waits for it to finish.
func (w *AccessSyncWorker) Stop() {
	w.once.Do(func() {
		if w.cancel == nil {
			close(w.done)
			return
		}
		w.cancel()
		<-w.done
	})
}

func (w *AccessSyncWorker) loop(ctx context.Context) {
	defer close(w.done)

	w.sync(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

func (w *AccessSyncWorker) sync(ctx context.Context) {
	accesses, err := w.fetcher.FetchRecentlyAccessedTraceData(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("access sync failed", zap.Error(err))
		return
	}
	w.logger.Debug("access sync finished", zap.Int("matched", len(accesses)))
}
