package jwtx

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/s2sauth/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes for service-to-service tokens. These are part of the wire
// contract, the client derives its local expiry from expiresIn.
const (
	// AccessTokenTTL is the lifetime of an access token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of a refresh token. There is no
	// rotation, so this bounds how long a leaked refresh token is useful.
	RefreshTokenTTL = 24 * time.Hour
)

// TokenType distinguishes what a token may be used for. An access token is
// never accepted where a refresh token is required and vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the payload of an S2S token:
//
//	{ "type": "access" | "refresh", "service": "<name>", "iat": <unix>, "exp": <unix>, "jti": "..." }
type Claims struct {
	jwt.RegisteredClaims

	// Type of the token, see TokenType.
	Type TokenType `json:"type"`

	// Service is the identity the token was issued to. It is opaque to the
	// authority and echoed back exactly as given.
	Service string `json:"service"`
}

// NewClaims builds claims for a token of the given type issued at now.
func NewClaims(tokenType TokenType, service string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type:    tokenType,
		Service: service,
	}
}

// NewJTI returns a unique identifier for the "jti" claim.
func NewJTI() string {
	return idx.New().String()
}

// Validate is called by the jwt parser after the registered claims were
// checked. A token without a known type or a service is never valid.
func (c Claims) Validate() error {
	switch c.Type {
	case TokenTypeAccess, TokenTypeRefresh:
	default:
		return errors.New("jwtx: unknown token type")
	}
	if c.Service == "" {
		return errors.New("jwtx: missing service claim")
	}
	return nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateType ensures the token is of the wanted type.
func (c *Claims) ValidateType(want TokenType) error {
	if c.Type != want {
		return ErrInvalidTokenType
	}
	return nil
}

// IssuedAtTime returns the iat claim, or the zero time if it is absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
