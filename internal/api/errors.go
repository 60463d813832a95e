package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/p-arndt/werkbank/internal/docker"
	"github.com/p-arndt/werkbank/internal/sanitize"
	"github.com/p-arndt/werkbank/internal/session"
)

// Error codes returned in API responses
const (
	ErrCodeInvalidPath       = "INVALID_PATH"
	ErrCodeUnsafeCommand     = "UNSAFE_COMMAND"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeSessionDeleted    = "SESSION_DELETED"
	ErrCodeNotRunning        = "SESSION_NOT_RUNNING"
	ErrCodeConflict          = "TRANSITION_IN_FLIGHT"
	ErrCodeResourceConflict  = "RESOURCE_CONFLICT"
	ErrCodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	ErrCodeProvisionFailed   = "PROVISION_FAILED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
)

// APIError is the structured error envelope for every failure response.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// writeAPIError maps domain errors onto the envelope and HTTP status.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr APIError
	statusCode := http.StatusInternalServerError

	switch {
	case errors.Is(err, sanitize.ErrInvalidPath):
		apiErr = APIError{Code: ErrCodeInvalidPath, Message: err.Error()}
		statusCode = http.StatusBadRequest

	case errors.Is(err, sanitize.ErrUnsafeCommand):
		apiErr = APIError{Code: ErrCodeUnsafeCommand, Message: err.Error()}
		statusCode = http.StatusBadRequest

	case errors.Is(err, session.ErrNotFound):
		apiErr = APIError{Code: ErrCodeSessionNotFound, Message: err.Error()}
		statusCode = http.StatusNotFound

	case errors.Is(err, session.ErrDeleted):
		apiErr = APIError{Code: ErrCodeSessionDeleted, Message: err.Error()}
		statusCode = http.StatusGone

	case errors.Is(err, session.ErrNotRunning):
		apiErr = APIError{
			Code:    ErrCodeNotRunning,
			Message: err.Error(),
			Hint:    "open the session first",
		}
		statusCode = http.StatusConflict

	case errors.Is(err, session.ErrConflict):
		apiErr = APIError{
			Code:    ErrCodeConflict,
			Message: err.Error(),
			Hint:    "another transition is in flight, retry",
		}
		statusCode = http.StatusConflict

	case errors.Is(err, docker.ErrResourceConflict):
		apiErr = APIError{Code: ErrCodeResourceConflict, Message: err.Error()}
		statusCode = http.StatusConflict

	case errors.Is(err, docker.ErrEngineUnavailable):
		apiErr = APIError{
			Code:    ErrCodeEngineUnavailable,
			Message: err.Error(),
			Hint:    "retryable",
		}
		statusCode = http.StatusServiceUnavailable

	case errors.Is(err, session.ErrProvisionFailed):
		apiErr = APIError{
			Code:    ErrCodeProvisionFailed,
			Message: err.Error(),
			Hint:    "the session is in a failed state, retry create or delete it",
		}
		statusCode = http.StatusBadGateway

	default:
		apiErr = APIError{Code: ErrCodeInternalError, Message: err.Error()}
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErr)
}

// writeValidationError writes a 400 Bad Request for malformed input.
func writeValidationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(APIError{
		Code:    ErrCodeInvalidRequest,
		Message: message,
	})
}

// writeUnauthorizedError writes a 401 Unauthorized error.
func writeUnauthorizedError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}
