package authsdk

import (
	"context"
	"fmt"
)

// renewKey is the singleflight key; there is only one credential pair per
// client so every renewal shares it.
const renewKey = "renew"

// GetValidToken returns a cached access token, renewing it first when there
// is none or it expires within a minute. Concurrent callers share a single
// renewal. Cancelling ctx abandons the wait but not the renewal in flight,
// which stays bounded by the transport's own timeout.
func (c *Client) GetValidToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	ch := c.renewals.DoChan(renewKey, func() (any, error) {
		// Double-check: a renewal may have completed since the fast path
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}
		return c.Refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		token, ok := res.Val.(string)
		if !ok || token == "" {
			return "", fmt.Errorf("authentication service returned an empty access token")
		}
		return token, nil
	}
}

// cachedToken returns the access token when it is present and not within
// refreshMargin of its expiry.
func (c *Client) cachedToken() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.accessToken == "" || c.expiresAt.IsZero() {
		return "", false
	}
	if c.now().After(c.expiresAt.Add(-refreshMargin)) {
		return "", false
	}
	return c.accessToken, true
}
