package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/service"
)

// StartNotificationWorker subscribes the notification service to checkout
// and data-access events. It must run before the lifecycle starts so events
// published while restoring a session are not missed.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}
