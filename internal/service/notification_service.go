package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-agent/internal/config"
	"github.com/spec-kit/checkin-agent/internal/domain"
	"github.com/spec-kit/checkin-agent/internal/events"
)

const inboxCapacity = 100

// NotificationService turns domain events into user notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig

	mu    sync.RWMutex
	inbox []domain.Notification
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCheckedOut, n.handleCheckedOut)
	n.dispatcher.Subscribe(events.EventAutomaticCheckoutFailed, n.handleAutomaticCheckoutFailed)
	n.dispatcher.Subscribe(events.EventDataAccessed, n.handleDataAccessed)
}

// Notifications returns the inbox, newest first.
func (n *NotificationService) Notifications() []domain.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]domain.Notification, len(n.inbox))
	for i, item := range n.inbox {
		out[len(n.inbox)-1-i] = item
	}
	return out
}

func (n *NotificationService) handleCheckedOut(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CheckedOutPayload)
	if !ok || payload.Trigger != domain.TriggerAutomatic {
		return nil
	}
	n.logger.Info("CheckedOut", zap.Any("payload", payload))
	n.add(ctx, event, domain.Notification{
		Kind:    domain.NotificationCheckedOut,
		Title:   "Checked out automatically",
		Message: fmt.Sprintf("You left %s and were checked out after %s.", payload.LocationName, FormatDuration(payload.Duration)),
	})
	return nil
}

func (n *NotificationService) handleAutomaticCheckoutFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AutomaticCheckoutFailedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AutomaticCheckoutFailed", zap.Any("payload", payload))

	note := domain.Notification{
		Kind:    domain.NotificationAutomaticCheckoutFailed,
		Title:   "Automatic check-out unavailable",
		Message: "Automatic check-out has been turned off. Please check out manually.",
	}
	if payload.LocationDisabled {
		note.Title = "Location disabled"
		note.Message = "Automatic check-out needs location services and has been turned off. Please check out manually."
	}
	n.add(ctx, event, note)
	return nil
}

func (n *NotificationService) handleDataAccessed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DataAccessedPayload)
	if !ok || len(payload.Accesses) == 0 {
		return nil
	}
	n.logger.Info("DataAccessed", zap.Int("count", len(payload.Accesses)))

	for _, access := range payload.Accesses {
		n.add(ctx, event, domain.Notification{
			Kind:  domain.NotificationDataAccessed,
			Title: "Your data has been accessed",
			Message: fmt.Sprintf("%s accessed your check-in at %s on %s.",
				access.HealthDepartmentName, access.LocationName, access.CheckInTimestamp.Format("2006-01-02")),
		})
	}
	return nil
}

func (n *NotificationService) add(ctx context.Context, event events.Event, note domain.Notification) {
	note.ID = uuid.NewString()
	note.CreatedAt = event.Timestamp

	n.mu.Lock()
	n.inbox = append(n.inbox, note)
	if len(n.inbox) > inboxCapacity {
		n.inbox = append([]domain.Notification(nil), n.inbox[len(n.inbox)-inboxCapacity:]...)
	}
	n.mu.Unlock()

	n.sendWebhookNotificationStub(ctx, event, note)
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event, note domain.Notification) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.String("kind", string(note.Kind)))
}
