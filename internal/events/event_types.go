package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCheckedIn                EventType = "checked_in"
	EventCheckedOut               EventType = "checked_out"
	EventAutomaticCheckoutChanged EventType = "automatic_checkout_changed"
	EventAutomaticCheckoutFailed  EventType = "automatic_checkout_failed"
	EventDataAccessed             EventType = "data_accessed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID *uuid.UUID  `json:"session_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, sessionID *uuid.UUID, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: at,
		Payload:   payload,
	}
}

// CheckedInPayload payload.
type CheckedInPayload struct {
	LocationID   uuid.UUID `json:"location_id"`
	LocationName string    `json:"location_name"`
}

// CheckedOutPayload payload.
type CheckedOutPayload struct {
	LocationName string                 `json:"location_name"`
	Trigger      domain.CheckOutTrigger `json:"trigger"`
	Duration     time.Duration          `json:"duration"`
}

// AutomaticCheckoutChangedPayload payload.
type AutomaticCheckoutChangedPayload struct {
	Enabled bool `json:"enabled"`
}

// AutomaticCheckoutFailedPayload payload.
type AutomaticCheckoutFailedPayload struct {
	Code             domain.CheckOutErrorCode `json:"code,omitempty"`
	LocationDisabled bool                     `json:"location_disabled"`
	Reason           string                   `json:"reason"`
}

// DataAccessedPayload payload.
type DataAccessedPayload struct {
	Accesses []domain.AccessedTraceData `json:"accesses"`
}
