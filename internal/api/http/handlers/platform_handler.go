package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-agent/internal/api/dto"
	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/geofence"
	"github.com/spec-kit/checkin-agent/internal/service"
	apperrors "github.com/spec-kit/checkin-agent/pkg/util/errorutil"
)

// PlatformHandler receives location state from the OS-side bridge. It only
// feeds the bridge; session state changes go through the lifecycle.
type PlatformHandler struct {
	bridge    *geofence.DeviceBridge
	lifecycle *service.CheckInService
}

// NewPlatformHandler constructs handler.
func NewPlatformHandler(bridge *geofence.DeviceBridge, lifecycle *service.CheckInService) *PlatformHandler {
	return &PlatformHandler{bridge: bridge, lifecycle: lifecycle}
}

// PutLocation PUT /platform/location.
func (h *PlatformHandler) PutLocation(c *fiber.Ctx) error {
	var req dto.PointDTO
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return apperrors.NewValidationError("coordinates out of range", nil)
	}
	h.bridge.UpdateLocation(domain.Point{Latitude: req.Latitude, Longitude: req.Longitude})
	return c.SendStatus(http.StatusNoContent)
}

// PutPermission PUT /platform/permission.
func (h *PlatformHandler) PutPermission(c *fiber.Ctx) error {
	var req dto.PermissionRequest
	if err := c.BodyParser(&req); err != nil || req.Granted == nil {
		return apperrors.NewValidationError("granted required", nil)
	}
	h.bridge.SetPermission(*req.Granted)
	return c.SendStatus(http.StatusNoContent)
}

// PutLocationService PUT /platform/location-service.
func (h *PlatformHandler) PutLocationService(c *fiber.Ctx) error {
	var req dto.ToggleRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return apperrors.NewValidationError("enabled required", nil)
	}
	h.bridge.SetLocationServiceEnabled(*req.Enabled)
	if !*req.Enabled {
		if err := h.lifecycle.LocationServiceDisabled(c.UserContext()); err != nil {
			return err
		}
	}
	return c.SendStatus(http.StatusNoContent)
}

// PostGeofenceEvent POST /platform/geofence-events.
func (h *PlatformHandler) PostGeofenceEvent(c *fiber.Ctx) error {
	var req dto.GeofenceEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RegionID == "" {
		return apperrors.NewValidationError("region_id required", nil)
	}
	if req.Transition != domain.TransitionEnter && req.Transition != domain.TransitionExit {
		return apperrors.NewValidationError("transition must be ENTER or EXIT", nil)
	}

	if err := h.bridge.ReportTransition(req.RegionID, req.Transition); err != nil {
		if errors.Is(err, geofence.ErrUnknownRegion) {
			return apperrors.NewDomainError("UNKNOWN_REGION", "geofence region not registered", http.StatusNotFound, nil)
		}
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}

// ListRegions GET /platform/regions.
func (h *PlatformHandler) ListRegions(c *fiber.Ctx) error {
	regions := h.bridge.Regions()
	out := make([]dto.RegionResponse, 0, len(regions))
	for _, r := range regions {
		out = append(out, dto.RegionResponse{
			ID:        r.ID,
			SessionID: r.SessionID.String(),
			Center:    dto.PointDTO{Latitude: r.Center.Latitude, Longitude: r.Center.Longitude},
			Radius:    r.Radius,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}
