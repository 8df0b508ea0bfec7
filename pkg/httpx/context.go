package httpx

import (
	"context"

	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyService ctxKey = "service"
	CtxKeyClaims  ctxKey = "claims"
)

func contextWithService(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyService, c.Service)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// ServiceFromContext returns the authenticated calling service, set by
// S2SAuthMiddleware.
func ServiceFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(CtxKeyService).(string)
	return s, ok && s != ""
}

// ClaimsFromContext returns the verified access token claims.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}
