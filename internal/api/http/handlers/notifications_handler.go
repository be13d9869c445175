package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-agent/internal/service"
)

// NotificationsHandler exposes the notification inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Notifications()})
}
