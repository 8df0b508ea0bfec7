package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/aussiebroadwan/s2sauth/internal/auth/app"
)

// RunServer starts the HTTP server and blocks until shutdown.
func RunServer(ctx context.Context, cfg app.Config) error {
	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}

// RunMigrations applies pending migrations and prints the schema version.
func RunMigrations(cfg app.Config, w io.Writer) error {
	admin, err := app.OpenAdmin(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	version, dirty, err := admin.MigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	admin.Logger.Info("migrations applied", "version", version, "dirty", dirty)
	_, err = fmt.Fprintf(w, "Schema version %d (dirty=%t)\n", version, dirty)
	return err
}
