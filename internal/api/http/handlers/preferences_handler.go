package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-agent/internal/api/dto"
	"github.com/spec-kit/checkin-agent/internal/service"
	apperrors "github.com/spec-kit/checkin-agent/pkg/util/errorutil"
)

// PreferencesHandler reads and writes user flags.
type PreferencesHandler struct {
	prefs *service.PreferencesService
}

// NewPreferencesHandler constructs handler.
func NewPreferencesHandler(prefs *service.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// GetAutomaticCheckout GET /preferences/automatic-checkout.
func (h *PreferencesHandler) GetAutomaticCheckout(c *fiber.Ctx) error {
	return h.get(c, h.prefs.AutomaticCheckoutDefault)
}

// PutAutomaticCheckout PUT /preferences/automatic-checkout.
func (h *PreferencesHandler) PutAutomaticCheckout(c *fiber.Ctx) error {
	return h.put(c, h.prefs.SetAutomaticCheckoutDefault)
}

// GetLocationConsent GET /preferences/location-consent.
func (h *PreferencesHandler) GetLocationConsent(c *fiber.Ctx) error {
	return h.get(c, h.prefs.LocationConsentGiven)
}

// PutLocationConsent PUT /preferences/location-consent.
func (h *PreferencesHandler) PutLocationConsent(c *fiber.Ctx) error {
	return h.put(c, h.prefs.SetLocationConsentGiven)
}

func (h *PreferencesHandler) get(c *fiber.Ctx, read func(context.Context) (bool, error)) error {
	enabled, err := read(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"enabled": enabled}})
}

func (h *PreferencesHandler) put(c *fiber.Ctx, write func(context.Context, bool) error) error {
	var req dto.ToggleRequest
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return apperrors.NewValidationError("enabled required", nil)
	}
	if err := write(c.UserContext(), *req.Enabled); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"enabled": *req.Enabled}})
}
