package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/auth/domain"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store"
	"github.com/aussiebroadwan/s2sauth/internal/metrics"
	"github.com/aussiebroadwan/s2sauth/pkg/cryptox"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/aussiebroadwan/s2sauth/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
)

// Operation labels recorded in business metrics.
const (
	OpTokenIssue   = "token_issue"
	OpTokenRefresh = "token_refresh"
)

// TokenService exchanges service credentials for S2S tokens.
type TokenService struct {
	Authority *jwtx.Authority
	Store     store.Store
	Hasher    *cryptox.Hasher
	Metrics   metrics.BusinessMetrics
	Now       func() time.Time
}

// ExchangeAPIKey issues a token pair to a registered, enabled service whose
// API key matches. Every failure to authenticate is ErrInvalidCredentials so
// callers cannot probe which part was wrong.
func (s *TokenService) ExchangeAPIKey(ctx context.Context, apiKey, serviceName string) (jwtx.TokenPair, error) {
	start := time.Now()
	l := slogx.FromContext(ctx)

	pair, err := s.exchangeAPIKey(ctx, apiKey, serviceName)
	s.record(ctx, OpTokenIssue, serviceName, start, err)

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		l.Info("api key exchange rejected", "service", serviceName)
	case err != nil:
		l.Error("api key exchange failed", "service", serviceName, "error", err)
	default:
		l.Info("tokens issued", "service", serviceName)
	}
	return pair, err
}

func (s *TokenService) exchangeAPIKey(ctx context.Context, apiKey, serviceName string) (jwtx.TokenPair, error) {
	if apiKey == "" || serviceName == "" {
		return jwtx.TokenPair{}, ErrInvalidCredentials
	}

	cred, err := s.credential(ctx, serviceName)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return jwtx.TokenPair{}, ErrInvalidCredentials
		}
		return jwtx.TokenPair{}, err
	}
	if cred.Disabled {
		return jwtx.TokenPair{}, ErrInvalidCredentials
	}

	// Argon2 runs only when the fingerprint matches.
	if !cryptox.EqualFingerprint(cryptox.FingerprintToken(apiKey), cred.APIKeyFingerprint) {
		return jwtx.TokenPair{}, ErrInvalidCredentials
	}
	if err := s.Hasher.Verify(apiKey, cred.APIKeyHash); err != nil {
		if errors.Is(err, cryptox.ErrHashMismatch) {
			return jwtx.TokenPair{}, ErrInvalidCredentials
		}
		return jwtx.TokenPair{}, fmt.Errorf("verify api key: %w", err)
	}

	pair, err := s.Authority.GenerateTokens(cred.ServiceName)
	if err != nil {
		return jwtx.TokenPair{}, err
	}

	if err := s.Store.Credentials().TouchCredentialLastUsed(ctx, cred.ServiceName, s.now()); err != nil {
		slogx.FromContext(ctx).Warn("failed to record credential use", "service", cred.ServiceName, "error", err)
	}
	return pair, nil
}

// ExchangeRefresh mints a new access token from a refresh token. The token
// must belong to serviceName and the service must still be enabled.
// Verification failures come back as the jwtx sentinel errors (ErrExpired,
// ErrInvalidToken, ErrInvalidTokenType); ownership failures as
// ErrInvalidRefresh.
func (s *TokenService) ExchangeRefresh(
	ctx context.Context,
	refreshToken, serviceName string,
) (jwtx.AccessGrant, error) {
	start := time.Now()
	l := slogx.FromContext(ctx)

	grant, err := s.exchangeRefresh(ctx, refreshToken, serviceName)
	s.record(ctx, OpTokenRefresh, serviceName, start, err)

	if err != nil {
		l.Info("refresh rejected", "service", serviceName, "reason", err.Error())
		return jwtx.AccessGrant{}, err
	}
	l.Debug("access token refreshed", "service", serviceName)
	return grant, nil
}

func (s *TokenService) exchangeRefresh(
	ctx context.Context,
	refreshToken, serviceName string,
) (jwtx.AccessGrant, error) {
	claims, err := s.Authority.Verify(refreshToken)
	if err != nil {
		return jwtx.AccessGrant{}, err
	}
	if err := claims.ValidateType(jwtx.TokenTypeRefresh); err != nil {
		return jwtx.AccessGrant{}, err
	}
	if claims.Service != serviceName {
		return jwtx.AccessGrant{}, ErrInvalidRefresh
	}

	cred, err := s.credential(ctx, serviceName)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return jwtx.AccessGrant{}, ErrInvalidRefresh
		}
		return jwtx.AccessGrant{}, err
	}
	if cred.Disabled {
		return jwtx.AccessGrant{}, ErrInvalidRefresh
	}

	return s.Authority.RefreshAccessToken(refreshToken)
}

func (s *TokenService) credential(ctx context.Context, serviceName string) (domain.ServiceCredential, error) {
	cred, err := s.Store.Credentials().GetCredentialByServiceName(ctx, serviceName)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ServiceCredential{}, ErrServiceNotFound
	}
	return cred, err
}

func (s *TokenService) record(ctx context.Context, op, serviceName string, start time.Time, err error) {
	m := s.Metrics
	if m == nil {
		m = metrics.NoOp{}
	}

	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidRefresh),
		errors.Is(err, jwtx.ErrInvalidToken),
		errors.Is(err, jwtx.ErrExpired),
		errors.Is(err, jwtx.ErrInvalidTokenType):
		status = metrics.StatusRejected
	default:
		status = metrics.StatusError
	}

	// unauthenticated names stay out of the label set
	if status != metrics.StatusSuccess {
		serviceName = "unknown"
	}
	m.RecordOperation(ctx, op, serviceName, status)
	m.RecordDuration(ctx, op, time.Since(start), status)
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
