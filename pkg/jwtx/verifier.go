package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Messages reported to callers of VerifyToken and written by the
// verification middleware. Other services match on these strings.
const (
	MsgInvalidToken     = "Invalid token"
	MsgTokenExpired     = "Token expired"
	MsgInvalidTokenType = "Invalid token type"
)

var (
	ErrMissingSecret = errors.New("S2S_JWT_SECRET is required")

	ErrInvalidToken     = errors.New("jwtx: invalid token")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrInvalidTokenType = errors.New("jwtx: invalid token type")
	ErrIssuer           = errors.New("jwtx: issuer mismatch")
)

// ErrorMessage maps a verification error to the message callers see.
// Anything that is not an expiry or a type mismatch is reported as invalid.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return MsgTokenExpired
	case errors.Is(err, ErrInvalidTokenType):
		return MsgInvalidTokenType
	default:
		return MsgInvalidToken
	}
}

// HS256Verifier validates JWTs signed using HMAC SHA-256.
type HS256Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifierHS256 creates a verifier for the given secret. An empty issuer
// means the iss claim is not enforced. now may be nil to use the wall clock.
func NewVerifierHS256(secret []byte, issuer string, now func() time.Time) *HS256Verifier {
	if now == nil {
		now = time.Now
	}
	return &HS256Verifier{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    now,
	}
}

// Verify validates the JWT string and returns its parsed Claims. The error
// wraps ErrExpired when only the lifetime is the problem and ErrInvalidToken
// for everything else (malformed, wrong signature, wrong algorithm, bad
// claims).
func (v *HS256Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		// The signature is checked before the claims, so an expired token
		// here always carried a valid signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}
