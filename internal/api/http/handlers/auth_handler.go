package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-agent/internal/api/dto"
	"github.com/spec-kit/checkin-agent/internal/auth"
	"github.com/spec-kit/checkin-agent/internal/domain"
	apperrors "github.com/spec-kit/checkin-agent/pkg/util/errorutil"
)

// AuthHandler issues bearer tokens to paired clients.
type AuthHandler struct {
	tokens      *auth.TokenManager
	pairingHash string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, pairingHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, pairingHash: pairingHash}
}

// Token handles POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" || req.Secret == "" {
		return apperrors.NewValidationError("client_id and secret required", nil)
	}
	if req.Subject == "" {
		req.Subject = domain.SubjectApp
	}
	if !req.Subject.Valid() {
		return apperrors.NewValidationError("unknown subject", map[string]any{"subject": req.Subject})
	}

	if err := auth.ComparePairingSecret(h.pairingHash, req.Secret); err != nil {
		if errors.Is(err, auth.ErrPairingDisabled) {
			return apperrors.NewUnavailable("pairing disabled")
		}
		return apperrors.NewUnauthorized("invalid pairing secret")
	}

	token, exp, err := h.tokens.GenerateToken(req.ClientID, req.Subject)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}
