package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RestoreOrDefault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	val, err := RestoreOrDefault(ctx, s, "flag", false)
	require.NoError(t, err)
	assert.False(t, val)

	require.NoError(t, Persist(ctx, s, "flag", true))
	val, err = RestoreOrDefault(ctx, s, "flag", false)
	require.NoError(t, err)
	assert.True(t, val)
}

func TestMemoryStore_RestoreMissing(t *testing.T) {
	_, err := Restore[string](context.Background(), NewMemoryStore(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteRemovesValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, Persist(ctx, s, "k", 42))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ChangesStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	changes, err := Changes[bool](ctx, s, "flag")
	require.NoError(t, err)

	require.NoError(t, Persist(ctx, s, "other", true))
	require.NoError(t, Persist(ctx, s, "flag", true))

	select {
	case got := <-changes:
		assert.True(t, got)
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, time.Second, 10*time.Millisecond)
}
