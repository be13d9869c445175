package dto

import (
	"time"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// TokenRequest exchanges the pairing secret for a bearer token.
type TokenRequest struct {
	ClientID string             `json:"client_id"`
	Secret   string             `json:"secret"`
	Subject  domain.SubjectType `json:"subject"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
