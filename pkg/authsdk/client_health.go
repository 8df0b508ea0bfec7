package authsdk

import (
	"context"
	"fmt"
	"net/http"
)

// GetLiveness checks if the authentication service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// GetReadiness checks if the authentication service is ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

// WhoAmI asks the authentication service which service the current access
// token belongs to. It goes through Do, so it authenticates if needed.
func (c *Client) WhoAmI(ctx context.Context) (*WhoAmIResponse, error) {
	endpoint, err := c.url("/auth/s2s/whoami")
	if err != nil {
		return nil, err
	}

	resp, err := c.Request(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var who WhoAmIResponse
	if err := decodeJSON(resp, &who, http.StatusOK); err != nil {
		return nil, err
	}

	return &who, nil
}

func (c *Client) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	endpoint, err := c.url(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}

	return &health, nil
}
