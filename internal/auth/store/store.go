package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories; a Tx exposes the same repositories bound to one
// transaction.
type Store interface {
	Credentials() Credentials

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Credentials interface {
	// CreateCredential inserts a credential. Returns ErrAlreadyExists when the
	// service name or key fingerprint is taken.
	CreateCredential(ctx context.Context, c domain.ServiceCredential) error

	// GetCredentialByServiceName returns ErrNotFound for unknown services.
	GetCredentialByServiceName(ctx context.Context, serviceName string) (domain.ServiceCredential, error)

	// ListCredentials returns every credential ordered by service name.
	ListCredentials(ctx context.Context) ([]domain.ServiceCredential, error)

	SetCredentialDisabled(ctx context.Context, serviceName string, disabled bool) error

	// UpdateCredentialKey replaces the key hash and fingerprint (key rotation).
	UpdateCredentialKey(ctx context.Context, serviceName, keyHash, fingerprint string) error

	TouchCredentialLastUsed(ctx context.Context, serviceName string, at time.Time) error
}
