package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"already checked in", domain.ErrAlreadyCheckedIn, "CONFLICT", http.StatusConflict},
		{"not checked in", fmt.Errorf("enable: %w", domain.ErrNotCheckedIn), "NOT_CHECKED_IN", http.StatusConflict},
		{"invalid input", fmt.Errorf("%w: radius", domain.ErrInvalidInput), "VALIDATION_FAILED", http.StatusBadRequest},
		{"network", domain.NetworkError(errors.New("dial tcp")), "NETWORK_ERROR", http.StatusBadGateway},
		{"matching", domain.MatchingError("bad hash"), "MATCHING_ERROR", http.StatusBadGateway},
		{"not running", domain.ErrLifecycleNotRunning, "UNAVAILABLE", http.StatusServiceUnavailable},
		{"permission", domain.NewCheckOutError(domain.MissingPermissionError, nil), "MISSING_PERMISSION_ERROR", http.StatusForbidden},
		{"location", domain.NewCheckOutError(domain.LocationUnavailableError, nil), "LOCATION_UNAVAILABLE_ERROR", http.StatusServiceUnavailable},
		{"duration", domain.NewCheckOutError(domain.MinimumDurationError, nil), "MINIMUM_DURATION_ERROR", http.StatusUnprocessableEntity},
		{"distance", domain.NewCheckOutError(domain.MinimumDistanceError, nil), "MINIMUM_DISTANCE_ERROR", http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}
}

func TestToDomainError_PassesThrough(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	original := NewConflict("taken", map[string]any{"id": 1})
	got := ToDomainError(fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, got)
}

func TestCheckOutErrorCategoryDetail(t *testing.T) {
	got := ToDomainError(domain.NewCheckOutError(domain.MissingPermissionError, nil))
	assert.Equal(t, "permission", got.Details["category"])
}
