package jwtx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHS256SignAndVerify(t *testing.T) {
	signer, err := jwtx.NewSignerHS256([]byte("hs256-secret"))
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	now := time.Now().UTC()
	claims := jwtx.NewClaims(jwtx.TokenTypeAccess, "ledger-service", time.Minute, "s2s-auth", now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verifier := jwtx.NewVerifierHS256([]byte("hs256-secret"), "s2s-auth", nil)
	parsed, err := verifier.Verify(token)
	require.NoError(t, err)

	require.Equal(t, claims.Service, parsed.Service)
	require.Equal(t, claims.Type, parsed.Type)
	require.Equal(t, claims.Issuer, parsed.Issuer)
	require.Equal(t, claims.ID, parsed.ID)
}

func TestNewSignerHS256RequiresSecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256(nil)
	require.ErrorIs(t, err, jwtx.ErrMissingSecret)
}

func TestHS256VerifyFailsForWrongIssuer(t *testing.T) {
	signer, err := jwtx.NewSignerHS256([]byte("k"))
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewClaims(jwtx.TokenTypeAccess, "svc", time.Minute, "s2s-auth", time.Now()))
	require.NoError(t, err)

	_, err = jwtx.NewVerifierHS256([]byte("k"), "other-issuer", nil).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestHS256VerifyRejectsOtherAlgorithms(t *testing.T) {
	t.Run("none algorithm", func(t *testing.T) {
		claims := jwtx.NewClaims(jwtx.TokenTypeAccess, "svc", time.Minute, "", time.Now())
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = jwtx.NewVerifierHS256([]byte("k"), "", nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("EdDSA token", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		claims := jwtx.NewClaims(jwtx.TokenTypeAccess, "svc", time.Minute, "", time.Now())
		token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
		require.NoError(t, err)

		_, err = jwtx.NewVerifierHS256([]byte("k"), "", nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})
}

func TestHS256VerifyRequiresExpiry(t *testing.T) {
	claims := jwtx.Claims{Type: jwtx.TokenTypeAccess, Service: "svc"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = jwtx.NewVerifierHS256([]byte("k"), "", nil).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestHS256VerifyRejectsUnknownType(t *testing.T) {
	claims := jwtx.NewClaims("session", "svc", time.Minute, "", time.Now())
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = jwtx.NewVerifierHS256([]byte("k"), "", nil).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, jwtx.MsgTokenExpired, jwtx.ErrorMessage(jwtx.ErrExpired))
	require.Equal(t, jwtx.MsgInvalidTokenType, jwtx.ErrorMessage(jwtx.ErrInvalidTokenType))
	require.Equal(t, jwtx.MsgInvalidToken, jwtx.ErrorMessage(jwtx.ErrInvalidToken))
	require.Equal(t, jwtx.MsgInvalidToken, jwtx.ErrorMessage(jwtx.ErrIssuer))
}
