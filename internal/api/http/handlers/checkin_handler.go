package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/checkin-agent/internal/api/dto"
	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/service"
	apperrors "github.com/spec-kit/checkin-agent/pkg/util/errorutil"
)

// CheckInHandler exposes the check-in lifecycle.
type CheckInHandler struct {
	service *service.CheckInService
}

// NewCheckInHandler constructs handler.
func NewCheckInHandler(checkInService *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{service: checkInService}
}

// Get GET /checkin.
func (h *CheckInHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.state()})
}

// CheckIn POST /checkin.
func (h *CheckInHandler) CheckIn(c *fiber.Ctx) error {
	var req dto.CheckInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return apperrors.NewValidationError("location_id must be a UUID", nil)
	}

	input := domain.CheckInInput{
		LocationID: locationID,
		GroupName:  req.GroupName,
		AreaName:   req.AreaName,
		Radius:     req.Radius,
		Properties: req.Properties,
	}
	if req.Center != nil {
		input.Center = &domain.Point{Latitude: req.Center.Latitude, Longitude: req.Center.Longitude}
	}

	if _, err := h.service.CheckIn(c.UserContext(), input); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.state()})
}

// CheckOut POST /checkout.
func (h *CheckInHandler) CheckOut(c *fiber.Ctx) error {
	if err := h.service.CheckOut(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.state()})
}

// SetAutomaticCheckOut PUT /checkin/automatic-checkout.
func (h *CheckInHandler) SetAutomaticCheckOut(c *fiber.Ctx) error {
	var req dto.ToggleRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return apperrors.NewValidationError("enabled required", nil)
	}

	var err error
	if *req.Enabled {
		err = h.service.EnableAutomaticCheckOut(c.UserContext())
	} else {
		err = h.service.DisableAutomaticCheckOut(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.state()})
}

func (h *CheckInHandler) state() dto.CheckInStateResponse {
	session := h.service.CheckInData().Get()
	resp := dto.CheckInStateResponse{
		CheckedIn: h.service.IsCheckedIn().Get(),
		Session:   dto.NewSessionResponse(session),
	}
	if session != nil {
		resp.Duration = h.service.Duration().Get()
	}
	return resp
}
