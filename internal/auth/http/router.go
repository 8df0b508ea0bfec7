package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/aussiebroadwan/s2sauth/pkg/slogx"

	_ "github.com/aussiebroadwan/s2sauth/api/s2s" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits holds the per-route limiter profiles.
type RateLimits struct {
	Token   httpx.RateLimitConfig
	Refresh httpx.RateLimitConfig
	WhoAmI  httpx.RateLimitConfig
	Health  httpx.RateLimitConfig
}

// DefaultRateLimits returns the built-in profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Token:   httpx.StrictLimit,
		Refresh: httpx.ModerateLimit,
		WhoAmI:  httpx.LenientLimit,
		Health:  httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	authority    *jwtx.Authority
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	handler      http.Handler

	TokenService *service.TokenService
	RateLimits   RateLimits

	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed when keying rate limits.
	TrustedProxies []netip.Prefix

	// MetricsHandler is mounted on GET /metrics when set.
	MetricsHandler http.Handler

	// MetricsMiddleware wraps the mux directly so r.Pattern is populated.
	MetricsMiddleware httpx.Middleware
}

func NewRouter(
	authority *jwtx.Authority,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		authority:    authority,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		RateLimits:   DefaultRateLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerS2S()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())

	var inner http.Handler = r.Mux
	if r.MetricsMiddleware != nil {
		inner = r.MetricsMiddleware(inner)
	}
	r.handler = httpx.Chain(inner, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			S2S Authentication Service API
//	@version		0.1.0
//	@description	Issues short-lived HS256 tokens to registered services in exchange for an API key.
//	@description
//	@description				Access tokens live 15 minutes and refresh tokens 24 hours.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/s2sauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				S2S access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.handler == nil {
		httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
		return
	}
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerS2S() {
	clientIP := httpx.TrustedProxyIPKeyExtractor(r.TrustedProxies)

	// POST /token - strict, keyed by IP + serviceName so one caller cannot
	// exhaust another service's budget
	r.Mux.Handle("POST /auth/s2s/token",
		httpx.Chain(&TokenHandler{TokenService: r.TokenService},
			httpx.RateLimitByIPAndJSONField(r.RateLimits.Token, clientIP, "serviceName"),
		),
	)

	r.Mux.Handle("POST /auth/s2s/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIPAndJSONField(r.RateLimits.Refresh, clientIP, "serviceName"),
		),
	)

	r.Mux.Handle("GET /auth/s2s/whoami",
		httpx.Chain(WhoAmIHandler(),
			httpx.S2SAuthMiddleware(r.authority),
			httpx.RateLimitByService(r.RateLimits.WhoAmI, clientIP),
		),
	)
}

func (r *Router) registerSystem() {
	clientIP := httpx.TrustedProxyIPKeyExtractor(r.TrustedProxies)

	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.RateLimits.Health, clientIP),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.authority),
			httpx.RateLimitByIP(r.RateLimits.Health, clientIP),
		),
	)

	if r.MetricsHandler != nil {
		r.Mux.Handle("GET /metrics", r.MetricsHandler)
	}
}
