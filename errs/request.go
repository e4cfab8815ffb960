package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Authentication & Authorization Errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidSession  = errors.New("invalid session")
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrTooManyAttempts = errors.New("too many sign-in attempts")
)

// Reason codes carried on authorization failures and echoed to the login surface.
const (
	ReasonNoProject       = "no_project"
	ReasonUnauthorized    = "unauthorized"
	ReasonTooManyAttempts = "too_many_attempts"
)

// Request & Input-Validation Errors
var (
	ErrValidation          = errors.New("validation error")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrMaxBodySizeExceeded = errors.New("max body size exceeded")
	ErrInvalidJSON         = errors.New("invalid JSON")
)

// NewValidationError reports a missing or invalid input field.
func NewValidationError(field, message string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrValidation,
		Details:    message,
		Field:      field,
	}
}

func NewUnauthenticatedError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        ErrUnauthenticated,
		Field:      "session",
	}
}

func NewInvalidSessionError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrUnauthenticated, ErrInvalidSession),
		Field:      "session",
		Cause:      cause,
	}
}

func NewBadCredentialsError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrUnauthenticated, ErrBadCredentials),
		Field:      "password",
	}
}

// NewTooManyAttemptsError rejects a sign-in from a client that failed too often recently.
func NewTooManyAttemptsError(retryAfter time.Duration) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusTooManyRequests,
		err:        ErrTooManyAttempts,
		Details:    fmt.Sprintf("try again in %s", retryAfter.Round(time.Second)),
		Code:       ReasonTooManyAttempts,
	}
}

// NewUnauthorizedError reports a failed project-admin check. reason is one of the Reason* codes.
func NewUnauthorizedError(reason string) *ApiErr {
	status := http.StatusForbidden
	if reason == ReasonNoProject {
		status = http.StatusNotFound
	}
	return &ApiErr{
		StatusCode: status,
		err:        ErrUnauthorized,
		Code:       reason,
	}
}

func NewMalformedPayloadError(payloadType string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrMalformedPayload,
		Details:    fmt.Sprintf("Malformed %s payload", payloadType),
		Cause:      cause,
		Field:      "payload",
	}
}

func NewMaxBodySizeExceededError(maxSize int64) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusRequestEntityTooLarge,
		err:        ErrMaxBodySizeExceeded,
		Details:    fmt.Sprintf("Request body size exceeded maximum allowed size of %d bytes", maxSize),
		Field:      "body_size",
	}
}

func NewInvalidJSONError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrInvalidJSON,
		Details:    "Invalid JSON format",
		Cause:      cause,
		Field:      "json",
	}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsTooManyAttempts(err error) bool {
	return errors.Is(err, ErrTooManyAttempts)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
