package repository

import (
	"context"
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// TraceRepository retains trace tuples of recent sessions.
type TraceRepository interface {
	Create(ctx context.Context, trace domain.TraceData) error
	FinalizeCheckOut(ctx context.Context, traceID string, at time.Time) error
	MarkAccessed(ctx context.Context, access domain.AccessedTraceData) error
	ListSince(ctx context.Context, cutoff time.Time) ([]domain.TraceData, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AccessedTraceRepository stores surfaced accesses, deduplicated by AccessKey.
type AccessedTraceRepository interface {
	// SaveNew stores records and returns those that were not stored before.
	SaveNew(ctx context.Context, records []domain.AccessedTraceData) ([]domain.AccessedTraceData, error)
	List(ctx context.Context) ([]domain.AccessedTraceData, error)
}
