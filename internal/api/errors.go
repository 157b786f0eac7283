package api

import (
	"net/http"
	"time"
)

// Error codes returned in the standardized error envelope.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeTaskRejected = "TASK_REJECTED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// APIError is the standardized error body.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// APIErrorResponse wraps an APIError for transport.
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// ValidationError carries a field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	respondJSON(w, status, APIErrorResponse{Error: APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestIDFrom(r),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	writeAPIError(w, r, http.StatusBadRequest, ErrCodeValidation, "invalid request", err.Error())
}
