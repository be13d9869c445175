package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrNotCheckedIn     = errors.New("not checked in")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrLifecycleNotRunning is returned for commands submitted outside Start/Close.
	ErrLifecycleNotRunning = errors.New("check-in lifecycle not running")

	// ErrNetwork marks access-data fetch failures.
	ErrNetwork = errors.New("network error")
	// ErrMalformedPayload marks server payloads that cannot be matched.
	ErrMalformedPayload = errors.New("malformed access payload")
)

// ErrorCategory groups user-actionable errors.
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "validation"
	CategoryPermission   ErrorCategory = "permission"
	CategoryAvailability ErrorCategory = "availability"
)

// CheckOutErrorCode enumerates the checkout failure variants.
type CheckOutErrorCode string

const (
	MissingPermissionError   CheckOutErrorCode = "MISSING_PERMISSION_ERROR"
	LocationUnavailableError CheckOutErrorCode = "LOCATION_UNAVAILABLE_ERROR"
	MinimumDurationError     CheckOutErrorCode = "MINIMUM_DURATION_ERROR"
	MinimumDistanceError     CheckOutErrorCode = "MINIMUM_DISTANCE_ERROR"
)

// CheckOutError is returned by checkout and automatic-checkout operations.
type CheckOutError struct {
	Code CheckOutErrorCode
	Err  error
}

// NewCheckOutError wraps an optional cause with a checkout error code.
func NewCheckOutError(code CheckOutErrorCode, cause error) *CheckOutError {
	return &CheckOutError{Code: code, Err: cause}
}

func (e *CheckOutError) Error() string {
	msg := checkOutMessages[e.Code]
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CheckOutError) Unwrap() error {
	return e.Err
}

// Category maps the code onto the error taxonomy.
func (e *CheckOutError) Category() ErrorCategory {
	switch e.Code {
	case MissingPermissionError:
		return CategoryPermission
	case LocationUnavailableError:
		return CategoryAvailability
	default:
		return CategoryValidation
	}
}

// Is matches any CheckOutError carrying the same code.
func (e *CheckOutError) Is(target error) bool {
	t, ok := target.(*CheckOutError)
	return ok && t.Code == e.Code
}

var checkOutMessages = map[CheckOutErrorCode]string{
	MissingPermissionError:   "location permission missing",
	LocationUnavailableError: "location unavailable",
	MinimumDurationError:     "minimum check-in duration not reached",
	MinimumDistanceError:     "still within venue range",
}

// CheckOutErrorCodeOf extracts the checkout error code, if any.
func CheckOutErrorCodeOf(err error) (CheckOutErrorCode, bool) {
	var coErr *CheckOutError
	if errors.As(err, &coErr) {
		return coErr.Code, true
	}
	return "", false
}

// NetworkError wraps transport failures of the access-data endpoint.
func NetworkError(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// MatchingError wraps payloads that cannot be matched.
func MatchingError(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, reason)
}
