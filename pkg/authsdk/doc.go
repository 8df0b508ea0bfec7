/*
Package authsdk provides the client side of service-to-service (S2S)
authentication.

# Overview

A Client holds a service's API key and name, exchanges them with the
authentication service for a short-lived access token and a longer-lived
refresh token, caches the pair, and attaches the access token to outbound
requests:

	client, err := authsdk.NewClient(authsdk.ClientConfig{
		APIKey:       os.Getenv("SERVICE_API_KEY"),
		ServiceName:  "billing-service",
		AuthEndpoint: "http://auth.internal:8080",
	})
	if err != nil {
		return err
	}

	resp, err := client.Request(ctx, http.MethodGet, "http://ledger.internal/v1/balance", nil, nil)

Every request carries:

	Authorization: Bearer <accessToken>
	X-Service-Name: <serviceName>

Caller headers are kept unless they collide with those two.

# Token Lifecycle

GetValidToken returns the cached access token until it is within 60 seconds
of expiry. It then calls Refresh, which uses the refresh token; if the
authentication service rejects it the client drops it and authenticates
again with the API key, once. Concurrent callers that find the token stale
wait on the same renewal instead of each contacting the service.

Refresh tokens are never rotated and a 401 from a downstream service is
returned to the caller unchanged. ClearTokens drops the cached pair.

# Errors

NewClient fails with ErrMissingAPIKey or ErrMissingServiceName. A rejected
credential exchange returns an *AuthError whose message starts with
"S2S authentication failed" and includes the response body. Transport
failures are wrapped and returned.

# Server Types

The request, response and error types in this package are also used by the
authentication service itself so both sides agree on the wire format.
*/
package authsdk
