package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/kvstore"
)

func TestKVTraceRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTraceRepository(kvstore.NewMemoryStore())
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, domain.TraceData{TraceID: "b", HashedTraceID: "hb", CheckInTimestamp: now}))
	require.NoError(t, repo.Create(ctx, domain.TraceData{TraceID: "a", HashedTraceID: "ha", CheckInTimestamp: now.Add(-time.Hour)}))
	assert.ErrorIs(t, repo.Create(ctx, domain.TraceData{TraceID: "a"}), domain.ErrInvalidInput)

	traces, err := repo.ListSince(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, "a", traces[0].TraceID)
	assert.Equal(t, "b", traces[1].TraceID)

	traces, err = repo.ListSince(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, "b", traces[0].TraceID)
}

func TestKVTraceRepository_FinalizeAndMarkAccessed(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTraceRepository(kvstore.NewMemoryStore())
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, domain.TraceData{TraceID: "a", HashedTraceID: "ha", CheckInTimestamp: now}))
	require.NoError(t, repo.FinalizeCheckOut(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, repo.MarkAccessed(ctx, domain.AccessedTraceData{
		HashedTraceID:        "ha",
		HealthDepartmentID:   "hd-1",
		HealthDepartmentName: "Gesundheitsamt",
		AccessTimestamp:      now.Add(2 * time.Hour),
	}))

	traces, err := repo.ListSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, traces, 1)
	require.NotNil(t, traces[0].CheckOutTimestamp)
	assert.True(t, traces[0].CheckOutTimestamp.Equal(now.Add(time.Hour)))
	assert.Equal(t, "hd-1", traces[0].HealthDepartmentID)
	require.NotNil(t, traces[0].AccessTimestamp)
}

func TestKVTraceRepository_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTraceRepository(kvstore.NewMemoryStore())
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, domain.TraceData{TraceID: "old", CheckInTimestamp: now.AddDate(0, 0, -20)}))
	require.NoError(t, repo.Create(ctx, domain.TraceData{TraceID: "new", CheckInTimestamp: now.AddDate(0, 0, -1)}))

	deleted, err := repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	traces, err := repo.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, "new", traces[0].TraceID)
}

func TestKVTraceRepository_SaveNewDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewKVTraceRepository(kvstore.NewMemoryStore())
	at := time.UnixMilli(1_700_000_000_000).UTC()

	a := domain.AccessedTraceData{HashedTraceID: "h1", HealthDepartmentID: "hd", AccessTimestamp: at}
	b := domain.AccessedTraceData{HashedTraceID: "h1", HealthDepartmentID: "hd2", AccessTimestamp: at}

	added, err := repo.SaveNew(ctx, []domain.AccessedTraceData{a, a, b})
	require.NoError(t, err)
	assert.Len(t, added, 2)

	added, err = repo.SaveNew(ctx, []domain.AccessedTraceData{a})
	require.NoError(t, err)
	assert.Empty(t, added)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
