package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
	"github.com/aussiebroadwan/s2sauth/pkg/authsdk"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
)

// TokenHandler serves POST /auth/s2s/token.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Exchange an API key for S2S tokens
//	@Description	Issues a 15 minute access token and a 24 hour refresh token to a registered service.
//	@Tags			S2S
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.TokenRequest	true	"API key and service name"
//	@Success		200		{object}	authsdk.TokenResponse	"accessToken, refreshToken, expiresIn"
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed or invalid body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many requests"
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/auth/s2s/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.TokenService.ExchangeAPIKey(r.Context(), req.APIKey, req.ServiceName)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeAPIError(w, authsdk.ErrInvalidCredentials)
			return
		}
		writeAPIError(w, authsdk.ErrServerError)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// RefreshHandler serves POST /auth/s2s/refresh.
type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Refresh an S2S access token
//	@Description	Mints a new access token from a refresh token. The refresh token is not rotated.
//	@Tags			S2S
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"refresh token and service name"
//	@Success		200		{object}	authsdk.RefreshResponse	"accessToken, expiresIn"
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed or invalid body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Token expired, Invalid token, Invalid token type or Invalid refresh token"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many requests"
//	@Failure		500		{object}	authsdk.ErrorResponse
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/auth/s2s/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	grant, err := h.TokenService.ExchangeRefresh(r.Context(), req.RefreshToken, req.ServiceName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh):
			writeAPIError(w, authsdk.ErrInvalidRefreshToken)
		case errors.Is(err, jwtx.ErrExpired):
			httpx.WriteError(w, http.StatusUnauthorized, jwtx.MsgTokenExpired, httpx.CodeTokenExpired)
		case errors.Is(err, jwtx.ErrInvalidToken), errors.Is(err, jwtx.ErrInvalidTokenType):
			httpx.WriteError(w, http.StatusUnauthorized, jwtx.ErrorMessage(err), "")
		default:
			writeAPIError(w, authsdk.ErrServerError)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   grant.ExpiresIn,
	})
}
