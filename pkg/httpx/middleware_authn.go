package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/aussiebroadwan/s2sauth/pkg/slogx"
)

// Messages written by S2SAuthMiddleware. Calling services match on these.
const (
	MsgAuthorizationRequired = "Authorization header required"
	MsgInvalidAuthFormat     = "Invalid authorization format. Use: Bearer <token>"

	// CodeTokenExpired tells the caller to refresh and retry.
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// S2SAuthMiddleware only lets requests through that carry a valid S2S access
// token in "Authorization: Bearer <token>". The calling service is attached
// to the request context, see ServiceFromContext. Every rejection is a 401.
func S2SAuthMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" {
				writeBearerError(w, MsgAuthorizationRequired, "")
				return
			}

			raw, ok := parseBearer(authz)
			if !ok {
				writeBearerError(w, MsgInvalidAuthFormat, "")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, jwtx.MsgTokenExpired, CodeTokenExpired)
					return
				}
				log.Warn("s2s token verify failed", "err", err)
				writeBearerError(w, jwtx.MsgInvalidToken, "")
				return
			}

			if err := claims.ValidateType(jwtx.TokenTypeAccess); err != nil {
				log.Warn("s2s token rejected", "err", err, "caller_service", claims.Service)
				writeBearerError(w, jwtx.MsgInvalidTokenType, "")
				return
			}

			ctx = contextWithService(ctx, claims)
			ctx = slogx.WithContext(ctx, log.With("caller_service", claims.Service))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseBearer extracts the token from "Bearer <token>". The scheme is case
// sensitive and the token must be a single non-empty field.
func parseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// writeBearerError writes the JSON 401 body together with an RFC 6750
// WWW-Authenticate challenge.
func writeBearerError(w http.ResponseWriter, msg, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+msg+`"`)
	WriteError(w, http.StatusUnauthorized, msg, code)
}
