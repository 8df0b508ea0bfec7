package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	tokenPath   = "/auth/s2s/token"
	refreshPath = "/auth/s2s/refresh"
)

// Authenticate exchanges the API key for a fresh token pair and caches it.
// It always goes to the network; use GetValidToken for cached access.
func (c *Client) Authenticate(ctx context.Context) (TokenPair, error) {
	var tokenResp TokenResponse
	err := c.postJSON(ctx, OpAuthenticate, tokenPath, TokenRequest{
		APIKey:      c.apiKey,
		ServiceName: c.serviceName,
	}, &tokenResp)
	if err != nil {
		return TokenPair{}, err
	}

	c.mu.Lock()
	c.accessToken = tokenResp.AccessToken
	c.refreshToken = tokenResp.RefreshToken
	c.expiresAt = c.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "s2s authenticated",
		slog.String("service", c.serviceName),
		"expires_in", tokenResp.ExpiresIn,
	)

	return TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

// Refresh renews the access token with the cached refresh token and returns
// it. Without a refresh token it authenticates instead. When the service
// rejects the refresh token it is dropped and Authenticate is tried once.
// The refresh token itself is never replaced by a refresh.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		pair, err := c.Authenticate(ctx)
		if err != nil {
			return "", err
		}
		return pair.AccessToken, nil
	}

	var refreshResp RefreshResponse
	err := c.postJSON(ctx, OpRefresh, refreshPath, RefreshRequest{
		RefreshToken: refreshToken,
		ServiceName:  c.serviceName,
	}, &refreshResp)
	if IsAuthError(err, OpRefresh) {
		c.logger.DebugContext(ctx, "s2s refresh rejected, re-authenticating",
			slog.String("service", c.serviceName),
			"error", err,
		)

		c.mu.Lock()
		if c.refreshToken == refreshToken {
			c.refreshToken = ""
		}
		c.mu.Unlock()

		pair, err := c.Authenticate(ctx)
		if err != nil {
			return "", err
		}
		return pair.AccessToken, nil
	}
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.accessToken = refreshResp.AccessToken
	c.expiresAt = c.now().Add(time.Duration(refreshResp.ExpiresIn) * time.Second)
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "s2s access token refreshed",
		slog.String("service", c.serviceName),
		"expires_in", refreshResp.ExpiresIn,
	)

	return refreshResp.AccessToken, nil
}

// postJSON posts body to the authentication service and decodes a 2xx
// response into target. Non-2xx responses become an *AuthError for op.
func (c *Client) postJSON(ctx context.Context, op, path string, body, target any) error {
	endpoint, err := c.url(path)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.transport.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AuthError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
