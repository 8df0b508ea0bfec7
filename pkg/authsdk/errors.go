package authsdk

import (
	"errors"
	"fmt"
	"net/http"
)

// Construction and configuration errors. NewClient never returns a partial
// client alongside them.
var (
	ErrMissingAPIKey      = errors.New("SERVICE_API_KEY is required")
	ErrMissingServiceName = errors.New("SERVICE_NAME is required")
	ErrMissingEndpoint    = errors.New("S2S_AUTH_ENDPOINT is required")
)

const (
	// OpAuthenticate is the AuthError.Op of a rejected token request.
	OpAuthenticate = "authenticate"

	// OpRefresh is the AuthError.Op of a rejected refresh request.
	OpRefresh = "refresh"
)

// AuthError is returned when the authentication service answers with a
// non-2xx status. Body holds the response text verbatim.
type AuthError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface. Other services match on the
// "S2S authentication failed" prefix.
func (e *AuthError) Error() string {
	if e.Op == OpRefresh {
		return fmt.Sprintf("S2S token refresh failed: %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("S2S authentication failed: %d: %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether err is an *AuthError for op. An empty op
// matches either operation.
func IsAuthError(err error, op string) bool {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return false
	}
	return op == "" || ae.Op == op
}

// ============================================================================
// Server-side errors
// ============================================================================

// APIError is an error the authentication service writes back to callers.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Message is what ends up in the "error" field
	Message string `json:"error"`

	// Code is optional and machine-readable
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates an APIError.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

// Errors written by the authentication endpoints.
var (
	ErrInvalidRequest = &APIError{
		StatusCode: http.StatusBadRequest,
		Message:    "Invalid request body",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Invalid credentials",
	}

	ErrInvalidRefreshToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Invalid refresh token",
	}

	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
	}
)
