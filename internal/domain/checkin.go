package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckInState enumerates lifecycle states of the check-in controller.
type CheckInState string

const (
	StateNotCheckedIn CheckInState = "NOT_CHECKED_IN"
	StateCheckedIn    CheckInState = "CHECKED_IN"
)

// CheckOutTrigger records what ended a session.
type CheckOutTrigger string

const (
	TriggerManual    CheckOutTrigger = "manual"
	TriggerAutomatic CheckOutTrigger = "automatic"
)

// CheckInSession is the single active visit record.
type CheckInSession struct {
	SessionID                uuid.UUID         `json:"sessionId"`
	LocationID               uuid.UUID         `json:"locationId"`
	GroupName                string            `json:"locationGroupName"`
	AreaName                 *string           `json:"locationAreaName,omitempty"`
	StartTimestamp           time.Time         `json:"timestamp"`
	HasLocationRestriction   bool              `json:"hasLocationRestriction"`
	Center                   *Point            `json:"center,omitempty"`
	Radius                   float64           `json:"radius,omitempty"`
	AdditionalProperties     map[string]string `json:"additionalProperties,omitempty"`
	AutomaticCheckoutEnabled bool              `json:"automaticCheckoutEnabled"`
	SkipDistanceAssertion    bool              `json:"skipDistanceAssertion"`
	TraceID                  string            `json:"traceId"`
	HashedTraceID            string            `json:"hashedTraceId"`
}

// LocationName renders the venue name the way history entries show it.
func (s CheckInSession) LocationName() string {
	if s.AreaName != nil && *s.AreaName != "" {
		return s.GroupName + " - " + *s.AreaName
	}
	return s.GroupName
}

// Clone returns a deep copy safe to hand out to observers.
func (s *CheckInSession) Clone() *CheckInSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.AreaName != nil {
		area := *s.AreaName
		out.AreaName = &area
	}
	if s.Center != nil {
		center := *s.Center
		out.Center = &center
	}
	if s.AdditionalProperties != nil {
		out.AdditionalProperties = make(map[string]string, len(s.AdditionalProperties))
		for k, v := range s.AdditionalProperties {
			out.AdditionalProperties[k] = v
		}
	}
	return &out
}

// CheckInInput describes a venue the user checks into.
type CheckInInput struct {
	LocationID uuid.UUID
	GroupName  string
	AreaName   *string
	Center     *Point
	Radius     float64
	Properties map[string]string
}
