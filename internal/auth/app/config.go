package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	httpapi "github.com/aussiebroadwan/s2sauth/internal/auth/http"
	"github.com/aussiebroadwan/s2sauth/pkg/httpx"
)

// Config holds the authentication service configuration.
type Config struct {
	// JWTSecret signs and verifies every token. Required.
	JWTSecret string
	// Issuer is written to and checked against the iss claim when set.
	Issuer string

	DatabaseFile       string // SQLite database file (default: s2s-auth.db)
	PepperFile         string // Optional: API key hashing pepper, created on first use
	FieldEncryptionKey string // Optional: seals credential owners at rest

	ServerHost string
	ServerPort int

	Env       string // dev, staging, prod (default: dev)
	LogLevel  string // debug, info, warn, error (default: info)
	LogFormat string // json, text (default: json)

	ShutdownGracePeriod time.Duration

	MetricsEnabled   bool
	MetricsNamespace string

	RateLimits httpapi.RateLimits
	// TrustedProxies are CIDRs or addresses whose forwarding headers are
	// believed. Empty trusts no one.
	TrustedProxies []string
}

// LoadConfig reads the configuration from the environment after loading the
// nearest .env file.
func LoadConfig() Config {
	loadDotEnv()

	return Config{
		JWTSecret: env.GetString("S2S_JWT_SECRET", ""),
		Issuer:    env.GetString("S2S_ISSUER", ""),

		DatabaseFile:       env.GetString("S2S_DATABASE_FILE", "s2s-auth.db"),
		PepperFile:         env.GetString("S2S_PEPPER_FILE", ""),
		FieldEncryptionKey: env.GetString("S2S_FIELD_ENCRYPTION_KEY", ""),

		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		Env:       env.GetString("ENV", "dev"),
		LogLevel:  env.GetString("LOG_LEVEL", "info"),
		LogFormat: env.GetString("LOG_FORMAT", "json"),

		ShutdownGracePeriod: env.GetDuration("SHUTDOWN_GRACE_PERIOD_SECONDS", 10, time.Second),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "s2sauth"),

		RateLimits: httpapi.RateLimits{
			Token:   httpx.ProfileFromEnv("strict", httpx.StrictLimit),
			Refresh: httpx.ProfileFromEnv("moderate", httpx.ModerateLimit),
			WhoAmI:  httpx.ProfileFromEnv("lenient", httpx.LenientLimit),
			Health:  httpx.ProfileFromEnv("public", httpx.PublicLimit),
		},
		TrustedProxies: env.GetStringSlice("TRUSTED_PROXIES", ",", nil),
	}
}

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.JWTSecret, validation.Required.Error("S2S_JWT_SECRET is required")),
		validation.Field(&c.DatabaseFile, validation.Required),
		validation.Field(&c.ServerPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.ShutdownGracePeriod, validation.Min(time.Duration(0))),
		validation.Field(&c.TrustedProxies, validation.By(func(any) error {
			_, err := httpx.ParseTrustedProxies(c.TrustedProxies)
			return err
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// loadDotEnv loads the first .env found walking up from the working directory.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
