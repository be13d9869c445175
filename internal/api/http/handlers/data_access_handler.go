package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-agent/internal/api/dto"
	"github.com/spec-kit/checkin-agent/internal/service"
)

// DataAccessHandler exposes surfaced health department accesses.
type DataAccessHandler struct {
	service *service.DataAccessService
}

// NewDataAccessHandler constructs handler.
func NewDataAccessHandler(dataAccessService *service.DataAccessService) *DataAccessHandler {
	return &DataAccessHandler{service: dataAccessService}
}

// List GET /data-access.
func (h *DataAccessHandler) List(c *fiber.Ctx) error {
	items, err := h.service.AccessedTraceData(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccessedTraceResponses(items)})
}

// Fetch POST /data-access/fetch runs a reconciliation cycle now.
func (h *DataAccessHandler) Fetch(c *fiber.Ctx) error {
	items, err := h.service.FetchRecentlyAccessedTraceData(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccessedTraceResponses(items)})
}
