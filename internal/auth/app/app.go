package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/s2sauth/internal/auth/http"
	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store"
	"github.com/aussiebroadwan/s2sauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/s2sauth/internal/metrics"
	"github.com/aussiebroadwan/s2sauth/pkg/cryptox"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
	"github.com/aussiebroadwan/s2sauth/pkg/jwtx"
	"github.com/aussiebroadwan/s2sauth/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application is the S2S authentication service with its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	authority *jwtx.Authority
	hasher    *cryptox.Hasher
	cipher    *cryptox.FieldCipher
	metrics   *metrics.Provider

	tokenService      *service.TokenService
	credentialService *service.CredentialService

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the application. The database is migrated
// before New returns.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "s2s-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Credentials exposes credential management to the CLI.
func (app *Application) Credentials() *service.CredentialService { return app.credentialService }

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info("s2s auth service starting", "addr", app.server.Addr, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Close()
			return fmt.Errorf("server failed: %w", err)
		}
		return app.Close()
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown drains the HTTP server within the grace period and then closes
// the remaining resources.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down s2s auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.metrics.Shutdown(ctx); err != nil {
		app.logger.Error("error shutting down metrics", "error", err)
	}

	if err := app.Close(); err != nil {
		return err
	}

	app.logger.Info("s2s auth service stopped")
	return nil
}

// Close releases the database without touching the HTTP server. Used by
// one-shot CLI commands.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

func (app *Application) initCrypto() error {
	authority, err := jwtx.NewAuthority(app.cfg.JWTSecret, jwtx.WithIssuer(app.cfg.Issuer))
	if err != nil {
		return fmt.Errorf("failed to initialize token authority: %w", err)
	}
	app.authority = authority

	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	if app.cfg.FieldEncryptionKey != "" {
		cipher, err := cryptox.NewFieldCipher(app.cfg.FieldEncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize field cipher: %w", err)
		}
		app.cipher = cipher
	}
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Debug("database migrations applied", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initServices() error {
	var business metrics.BusinessMetrics = metrics.NoOp{}
	if app.cfg.MetricsEnabled {
		provider, err := metrics.NewProvider()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		app.metrics = provider

		business, err = metrics.NewBusinessMetrics(provider.MeterProvider(), app.cfg.MetricsNamespace)
		if err != nil {
			return err
		}
	}

	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Hasher: app.hasher,
		Cipher: app.cipher,
	}
	app.tokenService = &service.TokenService{
		Authority: app.authority,
		Store:     app.db,
		Hasher:    app.hasher,
		Metrics:   business,
		Now:       time.Now,
	}
	return nil
}

func (app *Application) initHTTP() error {
	router := httpapi.NewRouter(app.authority, BuildVersion, app.db, app.logger)
	router.TokenService = app.tokenService
	router.RateLimits = app.cfg.RateLimits

	proxies, err := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	if err != nil {
		return err
	}
	router.TrustedProxies = proxies

	if app.metrics != nil {
		mw, err := metrics.HTTPMiddleware(app.metrics.MeterProvider(), app.cfg.MetricsNamespace)
		if err != nil {
			return err
		}
		router.MetricsMiddleware = mw
		router.MetricsHandler = app.metrics.Handler()
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
