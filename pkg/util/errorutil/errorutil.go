package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/checkin-agent/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

// NewUnavailable reports a disabled or not yet running capability.
func NewUnavailable(message string) error {
	return NewDomainError("UNAVAILABLE", message, http.StatusServiceUnavailable, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts errors raised by the check-in core into DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var checkOutErr *domain.CheckOutError
	if errors.As(err, &checkOutErr) {
		return &DomainError{
			Code:       string(checkOutErr.Code),
			Message:    checkOutErr.Error(),
			HTTPStatus: checkOutStatus(checkOutErr.Category()),
			Details:    map[string]any{"category": string(checkOutErr.Category())},
			Err:        err,
		}
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		return &DomainError{Code: "CONFLICT", Message: "already checked in", HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrNotCheckedIn):
		return &DomainError{Code: "NOT_CHECKED_IN", Message: "not checked in", HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrNetwork):
		return &DomainError{Code: "NETWORK_ERROR", Message: "access data unavailable", HTTPStatus: http.StatusBadGateway, Err: err}
	case errors.Is(err, domain.ErrMalformedPayload):
		return &DomainError{Code: "MATCHING_ERROR", Message: "malformed access data", HTTPStatus: http.StatusBadGateway, Err: err}
	case errors.Is(err, domain.ErrLifecycleNotRunning):
		return &DomainError{Code: "UNAVAILABLE", Message: "check-in lifecycle not running", HTTPStatus: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, domain.ErrInvalidInput):
		return &DomainError{Code: "VALIDATION_FAILED", Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func checkOutStatus(category domain.ErrorCategory) int {
	switch category {
	case domain.CategoryPermission:
		return http.StatusForbidden
	case domain.CategoryAvailability:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}
