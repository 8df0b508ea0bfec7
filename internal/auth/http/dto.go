package http

import (
	"encoding/json"
	"net/http"

	validation "github.com/jellydator/validation"

	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
	"github.com/aussiebroadwan/s2sauth/pkg/authsdk"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
)

// maxBodyBytes bounds request bodies on the token endpoints.
const maxBodyBytes = 64 << 10

type tokenRequest authsdk.TokenRequest

func (r *tokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.APIKey, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.ServiceName, service.ServiceNameRules...),
	)
}

type refreshRequest authsdk.RefreshRequest

func (r *refreshRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RefreshToken, validation.Required, validation.Length(1, 4096)),
		validation.Field(&r.ServiceName, service.ServiceNameRules...),
	)
}

type validatable interface {
	Validate() error
}

// decodeRequest reads a JSON body into v and validates it. On failure the
// 400 response has been written and false is returned.
func decodeRequest(w http.ResponseWriter, r *http.Request, v validatable) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeAPIError(w, authsdk.ErrInvalidRequest)
		return false
	}

	if err := v.Validate(); err != nil {
		writeAPIError(w, authsdk.NewAPIError(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return false
	}
	return true
}

// writeAPIError writes e as a no-store JSON error response.
func writeAPIError(w http.ResponseWriter, e *authsdk.APIError) {
	httpx.WriteError(w, e.StatusCode, e.Message, e.Code)
}
