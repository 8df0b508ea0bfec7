package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/metrics"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *metrics.Provider) string {
	t.Helper()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestProvider(t *testing.T) {
	p, err := metrics.NewProvider()
	require.NoError(t, err)
	require.NotNil(t, p.MeterProvider())
	require.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *metrics.Provider
	require.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestHTTPMiddleware(t *testing.T) {
	p, err := metrics.NewProvider()
	require.NoError(t, err)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	mw, err := metrics.HTTPMiddleware(p.MeterProvider(), "s2sauth_test")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := mw(mux)

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := scrape(t, p)
	require.Contains(t, out, "s2sauth_test_http_requests_total")
	require.Contains(t, out, `path="GET /items/{id}"`)
	require.Contains(t, out, `status_code="418"`)
	require.Contains(t, out, `path="unknown"`)
	require.Contains(t, out, "s2sauth_test_http_request_duration_seconds")
}

func TestBusinessMetrics(t *testing.T) {
	p, err := metrics.NewProvider()
	require.NoError(t, err)
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	bm, err := metrics.NewBusinessMetrics(p.MeterProvider(), "s2sauth_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "token_issue", "billing-service", metrics.StatusSuccess)
	bm.RecordOperation(ctx, "token_issue", "billing-service", metrics.StatusRejected)
	bm.RecordDuration(ctx, "token_issue", 25*time.Millisecond, metrics.StatusSuccess)

	out := scrape(t, p)
	require.Contains(t, out, "s2sauth_test_operations_total")
	require.Contains(t, out, `service="billing-service"`)
	require.Contains(t, out, `status="rejected"`)
	require.Contains(t, out, "s2sauth_test_operation_duration_seconds")
}

func TestNoOp(t *testing.T) {
	var bm metrics.BusinessMetrics = metrics.NoOp{}
	bm.RecordOperation(context.Background(), "token_issue", "svc", metrics.StatusSuccess)
	bm.RecordDuration(context.Background(), "token_issue", time.Second, metrics.StatusSuccess)
}
