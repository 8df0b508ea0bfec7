package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	httpapi "github.com/aussiebroadwan/s2sauth/internal/auth/http"
	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/s2sauth/internal/metrics"
	"github.com/aussiebroadwan/s2sauth/pkg/authsdk"
	"github.com/aussiebroadwan/s2sauth/pkg/cryptox"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type server struct {
	srv       *httptest.Server
	authority *jwtx.Authority
	apiKey    string
	skew      atomic.Int64
	store     *sqlite.Store
}

func newServer(t *testing.T, withMetrics bool) *server {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	s := &server{store: st}
	clock := func() time.Time { return time.Now().Add(time.Duration(s.skew.Load())) }
	authority, err := jwtx.NewAuthority("router-test-secret", jwtx.WithClock(clock))
	require.NoError(t, err)
	s.authority = authority

	hasher := cryptox.NewHasher("")
	creds := &service.CredentialService{Store: st, Hasher: hasher}
	s.apiKey, err = creds.Register(ctx, "billing-service", "")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := httpapi.NewRouter(authority, "test", st, logger)
	router.TokenService = &service.TokenService{
		Authority: authority,
		Store:     st,
		Hasher:    hasher,
		Metrics:   metrics.NoOp{},
	}

	if withMetrics {
		provider, err := metrics.NewProvider()
		require.NoError(t, err)
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		mw, err := metrics.HTTPMiddleware(provider.MeterProvider(), "s2s_auth")
		require.NoError(t, err)
		router.MetricsMiddleware = mw
		router.MetricsHandler = provider.Handler()
	}

	router.ApplyRoutes()
	s.srv = httptest.NewServer(router)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *server) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(s.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (s *server) get(t *testing.T, path, authz string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(t, err)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func errorOf(t *testing.T, body []byte) authsdk.ErrorResponse {
	t.Helper()
	var e authsdk.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestTokenEndpoint(t *testing.T) {
	s := newServer(t, false)

	t.Run("valid key", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/token", authsdk.TokenRequest{
			APIKey:      s.apiKey,
			ServiceName: "billing-service",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		var tr authsdk.TokenResponse
		require.NoError(t, json.Unmarshal(body, &tr))
		require.Equal(t, 900, tr.ExpiresIn)
		require.NotEmpty(t, tr.AccessToken)
		require.NotEmpty(t, tr.RefreshToken)

		claims, err := s.authority.Verify(tr.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "billing-service", claims.Service)
	})

	t.Run("wrong key", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/token", authsdk.TokenRequest{
			APIKey:      "s2s_nope",
			ServiceName: "billing-service",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid credentials", errorOf(t, body).Error)
	})

	t.Run("unknown service looks the same", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/token", authsdk.TokenRequest{
			APIKey:      s.apiKey,
			ServiceName: "ghost-service",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid credentials", errorOf(t, body).Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(s.srv.URL+"/auth/s2s/token", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/token", map[string]string{"serviceName": "billing-service"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.True(t, strings.HasPrefix(errorOf(t, body).Error, "Invalid request"))
	})
}

func TestRefreshEndpoint(t *testing.T) {
	s := newServer(t, false)

	pair, err := s.authority.GenerateTokens("billing-service")
	require.NoError(t, err)

	t.Run("refresh", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/refresh", authsdk.RefreshRequest{
			RefreshToken: pair.RefreshToken,
			ServiceName:  "billing-service",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rr authsdk.RefreshResponse
		require.NoError(t, json.Unmarshal(body, &rr))
		require.Equal(t, 900, rr.ExpiresIn)
		require.NotEmpty(t, rr.AccessToken)
		require.NotContains(t, string(body), "refreshToken")
	})

	t.Run("access token rejected", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/refresh", authsdk.RefreshRequest{
			RefreshToken: pair.AccessToken,
			ServiceName:  "billing-service",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, jwtx.MsgInvalidTokenType, errorOf(t, body).Error)
	})

	t.Run("other service", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/refresh", authsdk.RefreshRequest{
			RefreshToken: pair.RefreshToken,
			ServiceName:  "ledger-service",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid refresh token", errorOf(t, body).Error)
	})

	t.Run("garbage", func(t *testing.T) {
		resp, body := s.postJSON(t, "/auth/s2s/refresh", authsdk.RefreshRequest{
			RefreshToken: "not.a.jwt",
			ServiceName:  "billing-service",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, jwtx.MsgInvalidToken, errorOf(t, body).Error)
	})

	t.Run("expired", func(t *testing.T) {
		s.skew.Store(int64(25 * time.Hour))
		t.Cleanup(func() { s.skew.Store(0) })

		resp, body := s.postJSON(t, "/auth/s2s/refresh", authsdk.RefreshRequest{
			RefreshToken: pair.RefreshToken,
			ServiceName:  "billing-service",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		e := errorOf(t, body)
		require.Equal(t, jwtx.MsgTokenExpired, e.Error)
		require.Equal(t, httpx.CodeTokenExpired, e.Code)
	})
}

func TestWhoAmI(t *testing.T) {
	s := newServer(t, false)

	pair, err := s.authority.GenerateTokens("billing-service")
	require.NoError(t, err)

	t.Run("authenticated", func(t *testing.T) {
		resp, body := s.get(t, "/auth/s2s/whoami", "Bearer "+pair.AccessToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var who authsdk.WhoAmIResponse
		require.NoError(t, json.Unmarshal(body, &who))
		require.Equal(t, "billing-service", who.Service)
		require.Equal(t, int64(900), who.ExpiresAt-who.IssuedAt)
	})

	cases := []struct {
		name  string
		authz string
		want  string
	}{
		{"missing header", "", httpx.MsgAuthorizationRequired},
		{"wrong scheme", "Basic abc", httpx.MsgInvalidAuthFormat},
		{"refresh token", "Bearer " + pair.RefreshToken, jwtx.MsgInvalidTokenType},
		{"garbage", "Bearer abc.def.ghi", jwtx.MsgInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := s.get(t, "/auth/s2s/whoami", tc.authz)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, tc.want, errorOf(t, body).Error)
		})
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t, false)

	t.Run("livez", func(t *testing.T) {
		resp, body := s.get(t, "/livez", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var h authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(body, &h))
		require.Equal(t, "ok", h.Status)
		require.Equal(t, "test", h.Version)
	})

	t.Run("readyz", func(t *testing.T) {
		resp, body := s.get(t, "/readyz", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var h authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(body, &h))
		require.NotNil(t, h.Checks)
		require.Equal(t, "ok", h.Checks.Database)
		require.Equal(t, "ok", h.Checks.Signer)
	})

	t.Run("readyz degraded", func(t *testing.T) {
		require.NoError(t, s.store.Close())

		resp, body := s.get(t, "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var h authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(body, &h))
		require.Equal(t, "degraded", h.Status)
		require.Equal(t, "ok", h.Checks.Signer)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, true)

	resp, _ := s.get(t, "/livez", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "s2s_auth_http_requests_total")
	require.Contains(t, string(body), `path="GET /livez"`)
}

func TestNoMetricsRoute(t *testing.T) {
	s := newServer(t, false)

	resp, _ := s.get(t, "/metrics", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTokenRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newServer(t, false)

	post := func(forwarded string) int {
		body := `{"apiKey":"s2s_wrong","serviceName":"billing-service"}`
		req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/auth/s2s/token", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	// Strict allows a burst of 10 per address and service
	for i := range 10 {
		require.Equal(t, http.StatusUnauthorized, post(fmt.Sprintf("203.0.113.%d", i)))
	}
	require.Equal(t, http.StatusTooManyRequests, post("203.0.113.200"))
}
