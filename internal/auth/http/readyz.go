package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/auth/store"
	"github.com/aussiebroadwan/s2sauth/pkg/authsdk"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
)

// readyProbeService is the subject of the token minted to check the signer.
const readyProbeService = "readyz-probe"

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the credential database and that the authority can mint and verify a token.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	authority *jwtx.Authority,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{Database: "ok", Signer: "ok"}
		status, code := "ok", http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		if err := signerReady(authority); err != nil {
			checks.Signer = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

func signerReady(a *jwtx.Authority) error {
	pair, err := a.GenerateTokens(readyProbeService)
	if err != nil {
		return err
	}
	_, err = a.Verify(pair.AccessToken)
	return err
}
