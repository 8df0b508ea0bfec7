package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/s2sauth/pkg/cryptox"
	"github.com/aussiebroadwan/s2sauth/pkg/slogx"
)

// Admin is the subset of the application used by one-shot CLI commands.
// It does not need the JWT secret.
type Admin struct {
	Logger      *slog.Logger
	Credentials *service.CredentialService

	db *sqlite.Store
}

// OpenAdmin opens and migrates the credential database.
func OpenAdmin(cfg Config) (*Admin, error) {
	logger := slogx.New(slogx.Config{
		Service: "s2s-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	var cipher *cryptox.FieldCipher
	if cfg.FieldEncryptionKey != "" {
		if cipher, err = cryptox.NewFieldCipher(cfg.FieldEncryptionKey); err != nil {
			return nil, fmt.Errorf("failed to initialize field cipher: %w", err)
		}
	}

	db, err := sqlite.NewStore(sqlite.DSN(cfg.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	return &Admin{
		Logger: logger,
		Credentials: &service.CredentialService{
			Store:  db,
			Hasher: cryptox.NewHasher(pepper),
			Cipher: cipher,
		},
		db: db,
	}, nil
}

// MigrationVersion reports the applied schema version.
func (a *Admin) MigrationVersion() (version uint, dirty bool, err error) {
	return a.db.MigrationVersion()
}

func (a *Admin) Close() error { return a.db.Close() }
