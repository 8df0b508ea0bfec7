package jwtx

import (
	"errors"
	"os"
	"time"
)

// EnvSecret is the environment variable NewAuthorityFromEnv reads the signing
// secret from.
const EnvSecret = "S2S_JWT_SECRET"

// ErrMissingService is returned when tokens are requested for an empty
// service name.
var ErrMissingService = errors.New("jwtx: service name is required")

// TokenPair is what GenerateTokens hands out. ExpiresIn is the access token
// lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// AccessGrant is the result of exchanging a refresh token.
type AccessGrant struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// VerifyResult is the tagged outcome of VerifyToken. On failure Payload is
// nil and Error is one of MsgTokenExpired or MsgInvalidToken.
type VerifyResult struct {
	Valid   bool
	Payload *Claims
	Error   string
}

// Authority mints and validates S2S tokens for named services. It owns
// nothing but its secret, so one instance can be shared by any number of
// goroutines.
type Authority struct {
	signer     *HS256Signer
	verifier   *HS256Verifier
	issuer     string
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// AuthorityOption customises an Authority.
type AuthorityOption func(*Authority)

// WithClock replaces the wall clock, used for both issuing and verifying.
func WithClock(now func() time.Time) AuthorityOption {
	return func(a *Authority) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIssuer sets the iss claim on minted tokens and enforces it on
// verification.
func WithIssuer(issuer string) AuthorityOption {
	return func(a *Authority) { a.issuer = issuer }
}

// NewAuthority creates an Authority signing with secret. There is no
// fallback secret: an empty one is ErrMissingSecret.
func NewAuthority(secret string, opts ...AuthorityOption) (*Authority, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	a := &Authority{
		now:        time.Now,
		accessTTL:  AccessTokenTTL,
		refreshTTL: RefreshTokenTTL,
	}
	for _, opt := range opts {
		opt(a)
	}

	signer, err := NewSignerHS256([]byte(secret))
	if err != nil {
		return nil, err
	}
	a.signer = signer
	a.verifier = NewVerifierHS256([]byte(secret), a.issuer, a.now)

	return a, nil
}

// NewAuthorityFromEnv creates an Authority with the secret from S2S_JWT_SECRET.
func NewAuthorityFromEnv(opts ...AuthorityOption) (*Authority, error) {
	return NewAuthority(os.Getenv(EnvSecret), opts...)
}

// GenerateTokens mints an access token and a refresh token for service.
func (a *Authority) GenerateTokens(service string) (TokenPair, error) {
	if service == "" {
		return TokenPair{}, ErrMissingService
	}

	now := a.now()

	access, err := a.signer.Sign(NewClaims(TokenTypeAccess, service, a.accessTTL, a.issuer, now))
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := a.signer.Sign(NewClaims(TokenTypeRefresh, service, a.refreshTTL, a.issuer, now))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(a.accessTTL.Seconds()),
	}, nil
}

// Verify implements Verifier. The error wraps ErrExpired or ErrInvalidToken.
func (a *Authority) Verify(token string) (Claims, error) {
	c, err := a.verifier.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	return *c, nil
}

// VerifyToken validates signature and expiry and reports the outcome as a
// tagged value. A token signed with another secret is always invalid.
func (a *Authority) VerifyToken(token string) VerifyResult {
	c, err := a.verifier.Verify(token)
	if err != nil {
		return VerifyResult{Valid: false, Error: ErrorMessage(err)}
	}
	return VerifyResult{Valid: true, Payload: c}
}

// RefreshAccessToken exchanges a refresh token for a new access token for
// the same service. Verification errors are returned unchanged; an access
// token passed here is rejected with ErrInvalidTokenType before anything is
// minted. The refresh token itself is not rotated.
func (a *Authority) RefreshAccessToken(refreshToken string) (AccessGrant, error) {
	claims, err := a.verifier.Verify(refreshToken)
	if err != nil {
		return AccessGrant{}, err
	}

	if err := claims.ValidateType(TokenTypeRefresh); err != nil {
		return AccessGrant{}, err
	}

	access, err := a.signer.Sign(NewClaims(TokenTypeAccess, claims.Service, a.accessTTL, a.issuer, a.now()))
	if err != nil {
		return AccessGrant{}, err
	}

	return AccessGrant{
		AccessToken: access,
		ExpiresIn:   int(a.accessTTL.Seconds()),
	}, nil
}
