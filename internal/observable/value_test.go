package observable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_GetSet(t *testing.T) {
	v := NewValue(false)
	assert.False(t, v.Get())

	v.Set(true)
	assert.True(t, v.Get())
}

func TestValue_SubscribeReceivesUpdates(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	v.Set(1)

	select {
	case got := <-ch:
		assert.Equal(t, 1, got)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestValue_SlowSubscriberSeesLatest(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		v.Set(i)
	}

	got := <-ch
	assert.Equal(t, 5, got)
}

func TestValue_CancelClosesChannel(t *testing.T) {
	v := NewValue("a")
	ch, cancel := v.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	v.Set("b")
	assert.Equal(t, "b", v.Get())
}

func TestValue_CloseEndsSubscriptions(t *testing.T) {
	v := NewValue(1)
	ch, cancel := v.Subscribe()
	defer cancel()

	v.Close()
	_, ok := <-ch
	require.False(t, ok)

	late, lateCancel := v.Subscribe()
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok)
}
