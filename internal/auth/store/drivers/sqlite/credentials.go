package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/auth/domain"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store"
)

const credentialColumns = `id, service_name, api_key_hash, api_key_fingerprint, owner,
	disabled, created_at, updated_at, last_used_at`

type credentialsRepo struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (domain.ServiceCredential, error) {
	var (
		c        domain.ServiceCredential
		lastUsed sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.ServiceName,
		&c.APIKeyHash,
		&c.APIKeyFingerprint,
		&c.Owner,
		&c.Disabled,
		&c.CreatedAt,
		&c.UpdatedAt,
		&lastUsed,
	)
	if err != nil {
		return domain.ServiceCredential{}, err
	}
	c.LastUsedAt = mapNullTimePtr(lastUsed)
	return c, nil
}

func (r *credentialsRepo) CreateCredential(ctx context.Context, c domain.ServiceCredential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO service_credentials (`+credentialColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		c.ID,
		c.ServiceName,
		c.APIKeyHash,
		c.APIKeyFingerprint,
		c.Owner,
		c.Disabled,
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *credentialsRepo) GetCredentialByServiceName(
	ctx context.Context,
	serviceName string,
) (domain.ServiceCredential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM service_credentials WHERE service_name = ?`,
		serviceName,
	)
	c, err := scanCredential(row)
	if err != nil {
		return domain.ServiceCredential{}, mapNotFound(err)
	}
	return c, nil
}

func (r *credentialsRepo) ListCredentials(ctx context.Context) ([]domain.ServiceCredential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM service_credentials ORDER BY service_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServiceCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialsRepo) SetCredentialDisabled(ctx context.Context, serviceName string, disabled bool) error {
	return r.update(ctx,
		`UPDATE service_credentials SET disabled = ?, updated_at = ? WHERE service_name = ?`,
		disabled, time.Now().UTC(), serviceName,
	)
}

func (r *credentialsRepo) UpdateCredentialKey(
	ctx context.Context,
	serviceName, keyHash, fingerprint string,
) error {
	err := r.update(ctx,
		`UPDATE service_credentials
		SET api_key_hash = ?, api_key_fingerprint = ?, updated_at = ?
		WHERE service_name = ?`,
		keyHash, fingerprint, time.Now().UTC(), serviceName,
	)
	return mapConstraint(err)
}

func (r *credentialsRepo) TouchCredentialLastUsed(ctx context.Context, serviceName string, at time.Time) error {
	return r.update(ctx,
		`UPDATE service_credentials SET last_used_at = ? WHERE service_name = ?`,
		at.UTC(), serviceName,
	)
}

// update runs a single-row UPDATE and reports ErrNotFound when nothing matched.
func (r *credentialsRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
