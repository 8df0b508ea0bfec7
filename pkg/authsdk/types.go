package authsdk

// ============================================================================
// Token Endpoint Types
// ============================================================================

// TokenRequest is the body of POST /auth/s2s/token.
type TokenRequest struct {
	// APIKey is the secret issued to the service at registration
	APIKey string `json:"apiKey"`

	// ServiceName identifies the calling service
	ServiceName string `json:"serviceName"`
}

// RefreshRequest is the body of POST /auth/s2s/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	ServiceName  string `json:"serviceName"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	// AccessToken is the short-lived token attached to outbound calls
	AccessToken string `json:"accessToken"`

	// RefreshToken is used only to mint new access tokens
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expiresIn"`
}

// RefreshResponse is returned by the refresh endpoint. The refresh token is
// not rotated, so only the access token comes back.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// TokenPair is the credential pair held by a Client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ============================================================================
// Error Body
// ============================================================================

// ErrorResponse is the JSON error body written by the authentication service
// and the verification middleware.
type ErrorResponse struct {
	// Error is the human-readable message, e.g. "Token expired"
	Error string `json:"error"`

	// Code is a machine-readable code, only set for some errors (TOKEN_EXPIRED)
	Code string `json:"code,omitempty"`
}

// ============================================================================
// Identity and Health
// ============================================================================

// WhoAmIResponse is returned by GET /auth/s2s/whoami.
type WhoAmIResponse struct {
	Service   string `json:"service"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains individual health check results (only present in /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks contains the status of individual service components.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
