package http

import (
	"net/http"

	"github.com/aussiebroadwan/s2sauth/pkg/authsdk"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
)

// WhoAmIHandler godoc
//
//	@Summary		Identify the calling service
//	@Description	Returns the service named in the presented access token.
//	@Tags			S2S
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string					true	"Bearer access token"
//	@Param			X-Service-Name	header		string					false	"Calling service name"
//	@Success		200				{object}	authsdk.WhoAmIResponse	"service, iat, exp"
//	@Failure		401				{object}	authsdk.ErrorResponse
//	@Router			/auth/s2s/whoami [get].
func WhoAmIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			writeAPIError(w, authsdk.ErrServerError)
			return
		}

		resp := authsdk.WhoAmIResponse{Service: claims.Service}
		if iat := claims.IssuedAtTime(); !iat.IsZero() {
			resp.IssuedAt = iat.Unix()
		}
		if claims.ExpiresAt != nil {
			resp.ExpiresAt = claims.ExpiresAt.Unix()
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
