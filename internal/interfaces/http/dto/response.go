// Package dto holds the JSON envelopes of the connector's operational endpoints.
package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string            `json:"status"`
	SubscriptionHeld bool              `json:"subscription_held"`
	SubscriptionID   string            `json:"subscription_id,omitempty"`
	Checks           map[string]string `json:"checks,omitempty"`
	Version          string            `json:"version"`
	Uptime           string            `json:"uptime"`
}
