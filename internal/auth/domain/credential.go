package domain

import "time"

// ServiceCredential is a service that is allowed to exchange an API key for
// S2S tokens. The plaintext key is never stored.
type ServiceCredential struct {
	ID                string
	ServiceName       string
	APIKeyHash        string // Argon2id PHC string
	APIKeyFingerprint string // base64url SHA-256, unique
	Owner             string // contact for the service, AES-GCM sealed at rest
	Disabled          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastUsedAt        *time.Time
}
