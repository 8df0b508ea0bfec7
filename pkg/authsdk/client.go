package authsdk

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Environment variables consulted by this package.
const (
	EnvAuthEndpoint = "S2S_AUTH_ENDPOINT"
	EnvAPIKey       = "SERVICE_API_KEY"
	EnvServiceName  = "SERVICE_NAME"
)

// refreshMargin is how long before expiry a cached access token is renewed.
const refreshMargin = 60 * time.Second

// Doer sends an HTTP request. *http.Client satisfies it; tests substitute
// their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client. APIKey and ServiceName are required.
type ClientConfig struct {
	APIKey      string
	ServiceName string

	// AuthEndpoint is the base URL of the authentication service. When empty
	// S2S_AUTH_ENDPOINT is read each time an endpoint is needed.
	AuthEndpoint string

	// Transport defaults to an *http.Client with a 10 second timeout.
	Transport Doer

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger receives debug-level renewal events. Defaults to discarding.
	Logger *slog.Logger
}

// ConfigFromEnv fills a ClientConfig from SERVICE_API_KEY, SERVICE_NAME and
// S2S_AUTH_ENDPOINT. Nothing is validated until NewClient.
func ConfigFromEnv() ClientConfig {
	return ClientConfig{
		APIKey:       os.Getenv(EnvAPIKey),
		ServiceName:  os.Getenv(EnvServiceName),
		AuthEndpoint: os.Getenv(EnvAuthEndpoint),
	}
}

// Client authenticates a service against the S2S authentication endpoint and
// attaches its access token to outbound requests. It caches the credential
// pair and renews it shortly before expiry. A Client is safe for concurrent
// use; concurrent renewals collapse into a single network round trip.
type Client struct {
	apiKey      string
	serviceName string
	endpoint    string
	transport   Doer
	now         func() time.Time
	logger      *slog.Logger

	renewals singleflight.Group

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewClient creates a Client. It fails with ErrMissingAPIKey or
// ErrMissingServiceName before any network activity.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.ServiceName == "" {
		return nil, ErrMissingServiceName
	}

	c := &Client{
		apiKey:      cfg.APIKey,
		serviceName: cfg.ServiceName,
		endpoint:    strings.TrimSuffix(cfg.AuthEndpoint, "/"),
		transport:   cfg.Transport,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if c.transport == nil {
		c.transport = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	return c, nil
}

// ServiceName returns the name this client authenticates as.
func (c *Client) ServiceName() string {
	return c.serviceName
}

// ClearTokens drops the cached credential pair. The next GetValidToken
// authenticates from scratch.
func (c *Client) ClearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessToken = ""
	c.refreshToken = ""
	c.expiresAt = time.Time{}
}

// Tokens returns the cached credential pair without checking expiry.
func (c *Client) Tokens() TokenPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return TokenPair{AccessToken: c.accessToken, RefreshToken: c.refreshToken}
}

// url builds a complete URL by appending path to the authentication endpoint.
func (c *Client) url(path string) (string, error) {
	base := c.endpoint
	if base == "" {
		base = strings.TrimSuffix(os.Getenv(EnvAuthEndpoint), "/")
	}
	if base == "" {
		return "", ErrMissingEndpoint
	}
	return base + path, nil
}
