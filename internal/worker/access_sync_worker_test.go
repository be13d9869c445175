package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) FetchRecentlyAccessedTraceData(context.Context) ([]domain.AccessedTraceData, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestAccessSyncWorker_RunsImmediatelyThenOnInterval(t *testing.T) {
	fetcher := &countingFetcher{}
	w := NewAccessSyncWorker(fetcher, 20*time.Millisecond, nil)
	w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool { return fetcher.calls.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return fetcher.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestAccessSyncWorker_KeepsRunningAfterFailures(t *testing.T) {
	fetcher := &countingFetcher{err: domain.NetworkError(errors.New("offline"))}
	w := NewAccessSyncWorker(fetcher, 10*time.Millisecond, nil)
	w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool { return fetcher.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestAccessSyncWorker_StopsWithContext(t *testing.T) {
	fetcher := &countingFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	w := NewAccessSyncWorker(fetcher, time.Hour, nil)
	w.Start(ctx)
	cancel()

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	w.Stop()
	calls := fetcher.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, fetcher.calls.Load())
}

func TestAccessSyncWorker_StopWithoutStart(t *testing.T) {
	w := NewAccessSyncWorker(&countingFetcher{}, time.Hour, nil)
	w.Stop()
	w.Stop()
}
