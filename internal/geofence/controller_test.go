package geofence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

const testDwell = 80 * time.Millisecond

var venue = domain.Point{Latitude: 52.5200, Longitude: 13.4050}

func newTestController(t *testing.T) (*Controller, *DeviceBridge) {
	t.Helper()
	bridge := NewDeviceBridge()
	bridge.SetPermission(true)
	bridge.SetLocationServiceEnabled(true)
	ctrl := NewController(bridge, Options{Dwell: testDwell, MinRadius: 50, MaxRadius: 5000}, zap.NewNop(), nil)
	bridge.SetTransitionHandler(ctrl.HandleTransition)
	t.Cleanup(ctrl.Close)
	return ctrl, bridge
}

func receive(ch <-chan domain.GeofenceEvent, within time.Duration) (domain.GeofenceEvent, bool) {
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(within):
		return domain.GeofenceEvent{}, false
	}
}

func TestRegister_ReplacesPriorRegion(t *testing.T) {
	ctrl, bridge := newTestController(t)
	ctx := context.Background()

	first, err := ctrl.Register(ctx, venue, 100, uuid.New())
	require.NoError(t, err)
	second, err := ctrl.Register(ctx, venue, 100, uuid.New())
	require.NoError(t, err)

	regions := bridge.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, second.ID, regions[0].ID)
	assert.NotEqual(t, first.ID, second.ID)

	active, ok := ctrl.Active()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
}

func TestRegister_ClampsRadius(t *testing.T) {
	ctrl, _ := newTestController(t)

	small, err := ctrl.Register(context.Background(), venue, 5, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 50.0, small.Radius)

	large, err := ctrl.Register(context.Background(), venue, 10000, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 5000.0, large.Radius)
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name       string
		permission bool
		enabled    bool
		want       domain.CheckOutErrorCode
	}{
		{name: "missing permission", permission: false, enabled: true, want: domain.MissingPermissionError},
		{name: "location service disabled", permission: true, enabled: false, want: domain.LocationUnavailableError},
		{name: "permission checked first", permission: false, enabled: false, want: domain.MissingPermissionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, bridge := newTestController(t)
			bridge.SetPermission(tt.permission)
			bridge.SetLocationServiceEnabled(tt.enabled)

			_, err := ctrl.Register(context.Background(), venue, 100, uuid.New())
			code, ok := domain.CheckOutErrorCodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, code)
			assert.Empty(t, bridge.Regions())
		})
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	ctrl, bridge := newTestController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Unregister(ctx))
	_, err := ctrl.Register(ctx, venue, 100, uuid.New())
	require.NoError(t, err)
	require.NoError(t, ctrl.Unregister(ctx))
	require.NoError(t, ctrl.Unregister(ctx))

	assert.Empty(t, bridge.Regions())
	_, ok := ctrl.Active()
	assert.False(t, ok)
}

func TestExit_ConfirmedAfterDwell(t *testing.T) {
	ctrl, bridge := newTestController(t)
	region, err := ctrl.Register(context.Background(), venue, 100, uuid.New())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, bridge.ReportTransition(region.ID, domain.TransitionExit))

	ev, ok := receive(ctrl.Events(), time.Second)
	require.True(t, ok)
	assert.Equal(t, domain.TransitionExit, ev.Transition)
	assert.Equal(t, region.SessionID, ev.SessionID)
	assert.GreaterOrEqual(t, time.Since(start), testDwell)
}

func TestExit_CancelledByEnterWithinDwell(t *testing.T) {
	ctrl, bridge := newTestController(t)
	region, err := ctrl.Register(context.Background(), venue, 100, uuid.New())
	require.NoError(t, err)

	require.NoError(t, bridge.ReportTransition(region.ID, domain.TransitionExit))
	time.Sleep(testDwell / 4)
	require.NoError(t, bridge.ReportTransition(region.ID, domain.TransitionEnter))

	ev, ok := receive(ctrl.Events(), time.Second)
	require.True(t, ok)
	assert.Equal(t, domain.TransitionEnter, ev.Transition)

	_, ok = receive(ctrl.Events(), 3*testDwell)
	assert.False(t, ok, "cancelled exit must not be reported")
}

func TestExit_DroppedAfterUnregister(t *testing.T) {
	ctrl, bridge := newTestController(t)
	region, err := ctrl.Register(context.Background(), venue, 100, uuid.New())
	require.NoError(t, err)

	require.NoError(t, bridge.ReportTransition(region.ID, domain.TransitionExit))
	require.NoError(t, ctrl.Unregister(context.Background()))

	_, ok := receive(ctrl.Events(), 3*testDwell)
	assert.False(t, ok)
}

func TestTransition_StaleRegionIgnored(t *testing.T) {
	ctrl, _ := newTestController(t)
	_, err := ctrl.Register(context.Background(), venue, 100, uuid.New())
	require.NoError(t, err)

	ctrl.HandleTransition(domain.GeofenceEvent{RegionID: "other", Transition: domain.TransitionExit})

	_, ok := receive(ctrl.Events(), 3*testDwell)
	assert.False(t, ok)
}

func TestBridge_DerivesTransitionsFromFixes(t *testing.T) {
	ctrl, bridge := newTestController(t)
	bridge.UpdateLocation(venue)

	region, err := ctrl.Register(context.Background(), venue, 100, uuid.New())
	require.NoError(t, err)

	away := domain.Point{Latitude: 52.5300, Longitude: 13.4050}
	bridge.UpdateLocation(away)

	ev, ok := receive(ctrl.Events(), time.Second)
	require.True(t, ok)
	assert.Equal(t, domain.TransitionExit, ev.Transition)
	assert.Equal(t, region.ID, ev.RegionID)
}

func TestBridge_UnknownRegion(t *testing.T) {
	bridge := NewDeviceBridge()
	assert.ErrorIs(t, bridge.ReportTransition("nope", domain.TransitionExit), ErrUnknownRegion)
}

func TestBridge_CurrentLocationUnavailable(t *testing.T) {
	bridge := NewDeviceBridge()
	bridge.SetLocationServiceEnabled(true)
	_, err := bridge.CurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrLocationUnavailable)

	bridge.UpdateLocation(venue)
	got, err := bridge.CurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, venue, got)
}
