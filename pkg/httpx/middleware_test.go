package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestS2SAuthMiddleware(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	authority, err := jwtx.NewAuthority("middleware-secret", jwtx.WithClock(clock.Now))
	require.NoError(t, err)
	other, err := jwtx.NewAuthority("some-other-secret", jwtx.WithClock(clock.Now))
	require.NoError(t, err)

	pair, err := authority.GenerateTokens("billing-service")
	require.NoError(t, err)
	foreign, err := other.GenerateTokens("billing-service")
	require.NoError(t, err)

	var (
		called  bool
		service string
		claims  jwtx.Claims
	)
	h := httpx.S2SAuthMiddleware(authority)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		service, _ = httpx.ServiceFromContext(r.Context())
		claims, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(authz string) *httptest.ResponseRecorder {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name   string
		authz  string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, `{"error":"Authorization header required"}`},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, `{"error":"Invalid authorization format. Use: Bearer <token>"}`},
		{"bearer without token", "Bearer", http.StatusUnauthorized, `{"error":"Invalid authorization format. Use: Bearer <token>"}`},
		{"bearer with empty token", "Bearer ", http.StatusUnauthorized, `{"error":"Invalid authorization format. Use: Bearer <token>"}`},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusUnauthorized, `{"error":"Invalid authorization format. Use: Bearer <token>"}`},
		{"extra fields", "Bearer a b", http.StatusUnauthorized, `{"error":"Invalid authorization format. Use: Bearer <token>"}`},
		{"malformed token", "Bearer not-a-real-token", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"foreign secret", "Bearer " + foreign.AccessToken, http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized, `{"error":"Invalid token type"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(tc.authz)
			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
			require.False(t, called)
			require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}

	t.Run("valid access token", func(t *testing.T) {
		rec := serve("Bearer " + pair.AccessToken)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.True(t, called)
		require.Equal(t, "billing-service", service)
		require.Equal(t, jwtx.TokenTypeAccess, claims.Type)
	})

	t.Run("expired token", func(t *testing.T) {
		clock.Advance(16 * time.Minute)

		rec := serve("Bearer " + pair.AccessToken)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"Token expired","code":"TOKEN_EXPIRED"}`, rec.Body.String())
		require.False(t, called)
	})
}

func TestRequireService(t *testing.T) {
	authority, err := jwtx.NewAuthority("k")
	require.NoError(t, err)

	h := httpx.Chain(okHandler(),
		httpx.S2SAuthMiddleware(authority),
		httpx.RequireService("billing-service", "ledger-service"),
	)

	for service, want := range map[string]int{
		"billing-service":  http.StatusOK,
		"ledger-service":   http.StatusOK,
		"shipping-service": http.StatusForbidden,
	} {
		t.Run(service, func(t *testing.T) {
			pair, err := authority.GenerateTokens(service)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, want, rec.Code)
			if want == http.StatusForbidden {
				require.JSONEq(t, `{"error":"Service not allowed"}`, rec.Body.String())
			}
		})
	}

	t.Run("without authentication", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.RequireService("billing-service")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), nil, mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestWriteJSONNoCache(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusOK, map[string]string{"service": "a"})

	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"service":"a"}`, rec.Body.String())
}
