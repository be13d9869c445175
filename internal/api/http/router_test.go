package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/checkin-agent/internal/api/http/handlers"
	"github.com/spec-kit/checkin-agent/internal/auth"
	"github.com/spec-kit/checkin-agent/internal/config"
	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/events"
	"github.com/spec-kit/checkin-agent/internal/geofence"
	"github.com/spec-kit/checkin-agent/internal/kvstore"
	"github.com/spec-kit/checkin-agent/internal/persistence"
	"github.com/spec-kit/checkin-agent/internal/repository"
	"github.com/spec-kit/checkin-agent/internal/service"
)

const pairingSecret = "open sesame"

type apiFixture struct {
	app    *fiber.App
	bridge *geofence.DeviceBridge
	tokens *auth.TokenManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := zap.NewNop()
	store := kvstore.NewMemoryStore()
	bridge := geofence.NewDeviceBridge()
	controller := geofence.NewController(bridge, geofence.Options{Dwell: 50 * time.Millisecond}, logger, nil)
	bridge.SetTransitionHandler(controller.HandleTransition)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, config.NotificationConfig{})
	notifications.RegisterHandlers()

	traces := repository.NewKVTraceRepository(store)
	dataAccess := service.NewDataAccessService(service.DataAccessDependencies{
		TraceRepo:    traces,
		AccessedRepo: traces,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	lifecycle := service.NewCheckInService(service.CheckInDependencies{
		Store:      store,
		Geofences:  controller,
		Location:   bridge,
		Traces:     dataAccess,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     config.CheckInConfig{MinimumDistanceMeters: 50},
	})
	require.NoError(t, lifecycle.Start(context.Background()))
	t.Cleanup(func() {
		lifecycle.Close()
		controller.Close()
	})

	hashed, err := auth.HashPairingSecret(pairingSecret, bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("test-secret", 5)

	app := fiber.New()
	RegisterMiddlewares(app, logger, nil, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("checkin-agent", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(tokens, hashed),
		CheckIn:        handlers.NewCheckInHandler(lifecycle),
		DataAccess:     handlers.NewDataAccessHandler(dataAccess),
		Preferences:    handlers.NewPreferencesHandler(service.NewPreferencesService(store)),
		Notifications:  handlers.NewNotificationsHandler(notifications),
		Platform:       handlers.NewPlatformHandler(bridge, lifecycle),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	return &apiFixture{app: app, bridge: bridge, tokens: tokens}
}

func (f *apiFixture) token(t *testing.T, subject domain.SubjectType) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken("client-1", subject)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func data(body map[string]any) map[string]any {
	out, _ := body["data"].(map[string]any)
	return out
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = f.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	deps, _ := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestAuthToken(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodPost, "/auth/token", "", map[string]any{
		"client_id": "phone", "secret": pairingSecret,
	})
	require.Equal(t, http.StatusCreated, status)
	token, _ := data(body)["token"].(string)
	require.NotEmpty(t, token)

	status, _ = f.do(t, http.MethodGet, "/checkin", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = f.do(t, http.MethodPost, "/auth/token", "", map[string]any{
		"client_id": "phone", "secret": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = f.do(t, http.MethodPost, "/auth/token", "", map[string]any{
		"client_id": "phone", "secret": pairingSecret, "subject": "ADMIN",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestSubjectGuards(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodGet, "/checkin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = f.do(t, http.MethodGet, "/checkin", f.token(t, domain.SubjectPlatform), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = f.do(t, http.MethodGet, "/platform/regions", f.token(t, domain.SubjectApp), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(t, http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestCheckInCheckOutOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	app := f.token(t, domain.SubjectApp)
	locationID := uuid.NewString()

	status, body := f.do(t, http.MethodPost, "/checkin", app, map[string]any{
		"location_id": locationID,
		"group_name":  "Cafe",
		"radius":      0,
		"properties":  map[string]string{" table ": "7"},
	})
	require.Equal(t, http.StatusCreated, status)
	state := data(body)
	assert.Equal(t, true, state["checked_in"])
	session, _ := state["session"].(map[string]any)
	assert.Equal(t, locationID, session["location_id"])
	assert.Equal(t, "Cafe", session["location_name"])
	assert.NotEmpty(t, session["hashed_trace_id"])
	assert.NotContains(t, session, "trace_id")
	assert.Equal(t, map[string]any{"table": "7"}, session["properties"])

	status, body = f.do(t, http.MethodPost, "/checkin", app, map[string]any{
		"location_id": uuid.NewString(), "group_name": "Bar",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = f.do(t, http.MethodPut, "/checkin/automatic-checkout", app, map[string]any{"enabled": true})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = f.do(t, http.MethodPost, "/checkout", app, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, data(body)["checked_in"])

	status, body = f.do(t, http.MethodGet, "/checkin", app, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, data(body)["checked_in"])
	assert.NotContains(t, data(body), "session")
}

func TestCheckInValidation(t *testing.T) {
	f := newAPIFixture(t)
	app := f.token(t, domain.SubjectApp)

	status, body := f.do(t, http.MethodPost, "/checkin", app, map[string]any{
		"location_id": "not-a-uuid", "group_name": "Cafe",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = f.do(t, http.MethodPost, "/checkin", app, map[string]any{
		"location_id": uuid.NewString(),
		"group_name":  "Cafe",
		"center":      map[string]any{"latitude": 91, "longitude": 13.405},
		"radius":      50,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestCheckOutErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	app := f.token(t, domain.SubjectApp)
	platform := f.token(t, domain.SubjectPlatform)
	venue := map[string]any{
		"location_id": uuid.NewString(),
		"group_name":  "Museum",
		"center":      map[string]any{"latitude": 52.52, "longitude": 13.405},
		"radius":      50,
	}

	status, body := f.do(t, http.MethodPost, "/checkout", app, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, data(body)["checked_in"])

	status, _ = f.do(t, http.MethodPost, "/checkin", app, venue)
	require.Equal(t, http.StatusCreated, status)

	status, body = f.do(t, http.MethodPost, "/checkout", app, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(domain.MissingPermissionError), errorCode(body))

	status, _ = f.do(t, http.MethodPut, "/platform/permission", platform, map[string]any{"granted": true})
	require.Equal(t, http.StatusNoContent, status)

	status, body = f.do(t, http.MethodPost, "/checkout", app, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, string(domain.LocationUnavailableError), errorCode(body))

	status, _ = f.do(t, http.MethodPut, "/platform/location-service", platform, map[string]any{"enabled": true})
	require.Equal(t, http.StatusNoContent, status)
	status, _ = f.do(t, http.MethodPut, "/platform/location", platform, map[string]any{"latitude": 52.52, "longitude": 13.405})
	require.Equal(t, http.StatusNoContent, status)

	status, body = f.do(t, http.MethodPost, "/checkout", app, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(domain.MinimumDistanceError), errorCode(body))

	status, _ = f.do(t, http.MethodPut, "/platform/location", platform, map[string]any{"latitude": 52.53, "longitude": 13.405})
	require.Equal(t, http.StatusNoContent, status)
	status, body = f.do(t, http.MethodPost, "/checkout", app, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, data(body)["checked_in"])
}

func TestAutomaticCheckoutOverPlatform(t *testing.T) {
	f := newAPIFixture(t)
	app := f.token(t, domain.SubjectApp)
	platform := f.token(t, domain.SubjectPlatform)

	f.bridge.SetPermission(true)
	f.bridge.SetLocationServiceEnabled(true)
	f.bridge.UpdateLocation(domain.Point{Latitude: 52.52, Longitude: 13.405})

	status, _ := f.do(t, http.MethodPost, "/checkin", app, map[string]any{
		"location_id": uuid.NewString(),
		"group_name":  "Museum",
		"center":      map[string]any{"latitude": 52.52, "longitude": 13.405},
		"radius":      50,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := f.do(t, http.MethodPut, "/checkin/automatic-checkout", app, map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, status)
	session, _ := data(body)["session"].(map[string]any)
	assert.Equal(t, true, session["automatic_checkout_enabled"])

	status, body = f.do(t, http.MethodGet, "/platform/regions", platform, nil)
	require.Equal(t, http.StatusOK, status)
	regions, _ := body["data"].([]any)
	require.Len(t, regions, 1)
	regionID, _ := regions[0].(map[string]any)["id"].(string)

	status, body = f.do(t, http.MethodPost, "/platform/geofence-events", platform, map[string]any{
		"region_id": "nope", "transition": "EXIT",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "UNKNOWN_REGION", errorCode(body))

	status, _ = f.do(t, http.MethodPost, "/platform/geofence-events", platform, map[string]any{
		"region_id": regionID, "transition": "EXIT",
	})
	require.Equal(t, http.StatusAccepted, status)

	require.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, "/checkin", app, nil)
		return data(body)["checked_in"] == false
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, "/notifications", app, nil)
		notes, _ := body["data"].([]any)
		return len(notes) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPreferences(t *testing.T) {
	f := newAPIFixture(t)
	app := f.token(t, domain.SubjectApp)

	status, body := f.do(t, http.MethodGet, "/preferences/automatic-checkout", app, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, data(body)["enabled"])

	status, _ = f.do(t, http.MethodPut, "/preferences/automatic-checkout", app, map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(t, http.MethodGet, "/preferences/automatic-checkout", app, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, data(body)["enabled"])

	status, body = f.do(t, http.MethodPut, "/preferences/location-consent", app, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestDataAccessEmpty(t *testing.T) {
	f := newAPIFixture(t)
	app := f.token(t, domain.SubjectApp)

	status, body := f.do(t, http.MethodGet, "/data-access", app, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["data"])

	status, body = f.do(t, http.MethodPost, "/data-access/fetch", app, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["data"])
}
