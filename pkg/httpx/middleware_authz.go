package httpx

import (
	"net/http"
)

// MsgServiceNotAllowed is written when an authenticated service may not call
// an endpoint.
const MsgServiceNotAllowed = "Service not allowed"

// RequireService only lets the named services through. It must run after
// S2SAuthMiddleware; a request without a service in its context is
// rejected as well.
func RequireService(names ...string) Middleware {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			service, ok := ServiceFromContext(r.Context())
			if ok {
				if _, ok := allowed[service]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
			WriteError(w, http.StatusForbidden, MsgServiceNotAllowed, "")
		})
	}
}
