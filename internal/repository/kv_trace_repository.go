package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/kvstore"
)

// KVTraceRepository keeps trace tuples and accesses as JSON lists in the
// key-value store. It implements both repositories.
type KVTraceRepository struct {
	mu    sync.Mutex
	store kvstore.Store
}

// NewKVTraceRepository instantiates repository.
func NewKVTraceRepository(store kvstore.Store) *KVTraceRepository {
	return &KVTraceRepository{store: store}
}

func (r *KVTraceRepository) loadTraces(ctx context.Context) ([]domain.TraceData, error) {
	return kvstore.RestoreOrDefault(ctx, r.store, domain.KeyTraceData, []domain.TraceData{})
}

func (r *KVTraceRepository) Create(ctx context.Context, trace domain.TraceData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	traces, err := r.loadTraces(ctx)
	if err != nil {
		return err
	}
	for _, t := range traces {
		if t.TraceID == trace.TraceID {
			return domain.ErrInvalidInput
		}
	}
	traces = append(traces, trace)
	return kvstore.Persist(ctx, r.store, domain.KeyTraceData, traces)
}

func (r *KVTraceRepository) FinalizeCheckOut(ctx context.Context, traceID string, at time.Time) error {
	return r.update(ctx, func(t *domain.TraceData) bool {
		if t.TraceID != traceID {
			return false
		}
		ts := at
		t.CheckOutTimestamp = &ts
		return true
	})
}

func (r *KVTraceRepository) MarkAccessed(ctx context.Context, access domain.AccessedTraceData) error {
	return r.update(ctx, func(t *domain.TraceData) bool {
		if t.HashedTraceID != access.HashedTraceID {
			return false
		}
		ts := access.AccessTimestamp
		t.HealthDepartmentID = access.HealthDepartmentID
		t.HealthDepartmentName = access.HealthDepartmentName
		t.AccessTimestamp = &ts
		return true
	})
}

func (r *KVTraceRepository) update(ctx context.Context, fn func(*domain.TraceData) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	traces, err := r.loadTraces(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i := range traces {
		if fn(&traces[i]) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return kvstore.Persist(ctx, r.store, domain.KeyTraceData, traces)
}

func (r *KVTraceRepository) ListSince(ctx context.Context, cutoff time.Time) ([]domain.TraceData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	traces, err := r.loadTraces(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TraceData, 0, len(traces))
	for _, t := range traces {
		if !t.CheckInTimestamp.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CheckInTimestamp.Before(out[j].CheckInTimestamp)
	})
	return out, nil
}

func (r *KVTraceRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	traces, err := r.loadTraces(ctx)
	if err != nil {
		return 0, err
	}
	kept := traces[:0]
	for _, t := range traces {
		if !t.CheckInTimestamp.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	deleted := int64(len(traces) - len(kept))
	if deleted == 0 {
		return 0, nil
	}
	if err := kvstore.Persist(ctx, r.store, domain.KeyTraceData, kept); err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *KVTraceRepository) SaveNew(ctx context.Context, records []domain.AccessedTraceData) ([]domain.AccessedTraceData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, err := kvstore.RestoreOrDefault(ctx, r.store, domain.KeyAccessedTraceData, []domain.AccessedTraceData{})
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.AccessKey]struct{}, len(stored))
	for _, a := range stored {
		seen[a.Key()] = struct{}{}
	}
	var added []domain.AccessedTraceData
	for _, a := range records {
		if _, ok := seen[a.Key()]; ok {
			continue
		}
		seen[a.Key()] = struct{}{}
		stored = append(stored, a)
		added = append(added, a)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := kvstore.Persist(ctx, r.store, domain.KeyAccessedTraceData, stored); err != nil {
		return nil, err
	}
	return added, nil
}

func (r *KVTraceRepository) List(ctx context.Context) ([]domain.AccessedTraceData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kvstore.RestoreOrDefault(ctx, r.store, domain.KeyAccessedTraceData, []domain.AccessedTraceData{})
}
