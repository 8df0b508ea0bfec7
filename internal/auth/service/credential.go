package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/aussiebroadwan/s2sauth/internal/auth/domain"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store"
	"github.com/aussiebroadwan/s2sauth/pkg/cryptox"
	"github.com/aussiebroadwan/s2sauth/pkg/idx"
	"github.com/aussiebroadwan/s2sauth/pkg/slogx"
)

var (
	ErrAlreadyRegistered = errors.New("service already registered")
	ErrServiceNotFound   = errors.New("service not found")
	ErrOwnerNeedsCipher  = errors.New("owner requires S2S_FIELD_ENCRYPTION_KEY")
)

var serviceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ServiceNameRules are the rules a registrable service name must satisfy.
var ServiceNameRules = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
	validation.Match(serviceNamePattern).Error("must be lowercase letters, digits, '.', '_' or '-'"),
}

// ValidateServiceName checks name against ServiceNameRules.
func ValidateServiceName(name string) error {
	return validation.Validate(name, ServiceNameRules...)
}

// CredentialInfo is a registered service as shown to operators. It never
// carries key material.
type CredentialInfo struct {
	ServiceName string     `json:"serviceName"`
	Owner       string     `json:"owner,omitempty"`
	Disabled    bool       `json:"disabled"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
}

// CredentialService manages the registry of services allowed to obtain tokens.
type CredentialService struct {
	Store  store.Store
	Hasher *cryptox.Hasher

	// Cipher seals the owner field. Optional; without it owners cannot be set.
	Cipher *cryptox.FieldCipher
}

// Register adds a service and returns its API key. The key is returned only
// here; the store keeps an Argon2id hash and a fingerprint.
func (s *CredentialService) Register(ctx context.Context, serviceName, owner string) (string, error) {
	l := slogx.FromContext(ctx)

	if err := ValidateServiceName(serviceName); err != nil {
		return "", fmt.Errorf("invalid service name: %w", err)
	}

	sealedOwner, err := s.sealOwner(owner)
	if err != nil {
		return "", err
	}

	apiKey, hash, fingerprint, err := s.newKey()
	if err != nil {
		l.Error("failed to generate api key", "error", err)
		return "", err
	}

	err = s.Store.Credentials().CreateCredential(ctx, domain.ServiceCredential{
		ID:                idx.New().String(),
		ServiceName:       serviceName,
		APIKeyHash:        hash,
		APIKeyFingerprint: fingerprint,
		Owner:             sealedOwner,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", ErrAlreadyRegistered
		}
		l.Error("failed to store credential", "error", err, "service", serviceName)
		return "", err
	}

	l.Info("service registered", "service", serviceName)
	return apiKey, nil
}

// RotateKey replaces a service's API key and returns the new one. The old
// key stops working immediately; tokens already issued stay valid until
// they expire.
func (s *CredentialService) RotateKey(ctx context.Context, serviceName string) (string, error) {
	l := slogx.FromContext(ctx)

	apiKey, hash, fingerprint, err := s.newKey()
	if err != nil {
		return "", err
	}

	err = s.Store.Credentials().UpdateCredentialKey(ctx, serviceName, hash, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrServiceNotFound
		}
		l.Error("failed to rotate api key", "error", err, "service", serviceName)
		return "", err
	}

	l.Info("service api key rotated", "service", serviceName)
	return apiKey, nil
}

// SetDisabled blocks (or unblocks) a service from obtaining new tokens.
func (s *CredentialService) SetDisabled(ctx context.Context, serviceName string, disabled bool) error {
	err := s.Store.Credentials().SetCredentialDisabled(ctx, serviceName, disabled)
	if errors.Is(err, store.ErrNotFound) {
		return ErrServiceNotFound
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("service status changed", "service", serviceName, "disabled", disabled)
	return nil
}

// List returns every registered service. Owners are decrypted when a cipher
// is configured and left empty otherwise.
func (s *CredentialService) List(ctx context.Context) ([]CredentialInfo, error) {
	creds, err := s.Store.Credentials().ListCredentials(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CredentialInfo, len(creds))
	for i, c := range creds {
		out[i] = CredentialInfo{
			ServiceName: c.ServiceName,
			Disabled:    c.Disabled,
			CreatedAt:   c.CreatedAt,
			LastUsedAt:  c.LastUsedAt,
		}
		if c.Owner != "" && s.Cipher != nil {
			owner, err := s.Cipher.DecryptString(c.Owner)
			if err != nil {
				return nil, fmt.Errorf("decrypt owner of %s: %w", c.ServiceName, err)
			}
			out[i].Owner = owner
		}
	}
	return out, nil
}

func (s *CredentialService) sealOwner(owner string) (string, error) {
	if owner == "" {
		return "", nil
	}
	if s.Cipher == nil {
		return "", ErrOwnerNeedsCipher
	}
	return s.Cipher.EncryptString(owner)
}

func (s *CredentialService) newKey() (apiKey, hash, fingerprint string, err error) {
	apiKey, err = cryptox.GenerateAPIKey()
	if err != nil {
		return "", "", "", err
	}
	hash, err = s.Hasher.Hash(apiKey)
	if err != nil {
		return "", "", "", err
	}
	return apiKey, hash, cryptox.FingerprintToken(apiKey), nil
}
