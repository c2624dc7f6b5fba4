package models

import "time"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Message: message}
}

// NewValidationErrorResponse creates a validation error response
func NewValidationErrorResponse(errors map[string]string) ErrorResponse {
	return ErrorResponse{
		Message: "Validation failed",
		Errors:  errors,
	}
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse reports OK at t, formatted as ISO 8601 with milliseconds.
func NewHealthResponse(t time.Time) HealthResponse {
	return HealthResponse{
		Status:    "OK",
		Timestamp: t.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
