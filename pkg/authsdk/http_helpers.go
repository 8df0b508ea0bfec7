package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/s2sauth/pkg/slogx"
)

// Headers set by the client on every authenticated request.
const (
	HeaderAuthorization = "Authorization"
	HeaderServiceName   = "X-Service-Name"
	HeaderRequestID     = "X-Request-ID"
)

// composeHeaders builds the outbound header set. Caller headers are applied
// first; Authorization and X-Service-Name are then always overwritten by
// the client. X-Request-ID is only added when the caller did not set one.
func composeHeaders(caller http.Header, token, serviceName, requestID string) http.Header {
	h := make(http.Header, len(caller)+3)
	for key, values := range caller {
		h[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	h.Set(HeaderAuthorization, "Bearer "+token)
	h.Set(HeaderServiceName, serviceName)

	if requestID != "" && h.Get(HeaderRequestID) == "" {
		h.Set(HeaderRequestID, requestID)
	}

	return h
}

// Request sends an authenticated request to url. headers may be nil. The
// response is returned as is, including a 401 from the downstream service;
// the client does not retry.
func (c *Client) Request(
	ctx context.Context,
	method, url string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return c.Do(req)
}

// Do attaches the service credentials to req and sends it through the
// transport. req is not modified; a clone with the composed headers is sent.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := c.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	requestID, _ := slogx.RequestIDFromContext(ctx)

	out := req.Clone(ctx)
	out.Header = composeHeaders(req.Header, token, c.serviceName, requestID)

	resp, err := c.transport.Do(out)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// decodeJSON decodes a JSON response into target. Any status other than
// expectedStatus is returned as an *APIError built from the body.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// parseErrorResponse turns an error body into an *APIError, falling back to
// the status text when the body is not the expected JSON.
func parseErrorResponse(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error, Code: errResp.Code}
	}

	return &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}
}
