// Command s2s-auth runs the service-to-service authentication server and
// manages the registry of services allowed to obtain tokens.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/aussiebroadwan/s2sauth/cmd/s2s-auth/commands"
	"github.com/aussiebroadwan/s2sauth/internal/auth/app"
)

func main() {
	cmd := &cli.Command{
		Name:     "s2s-auth",
		Usage:    "Service-to-service authentication",
		Version:  app.BuildVersion,
		Commands: getCommands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func nameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "name",
		Aliases:  []string{"n"},
		Required: true,
		Usage:    "Service name (lowercase letters, digits, '.', '_' or '-')",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   commands.FormatText,
		Usage:   "Output format: 'text' or 'json'",
	}
}

// withAdmin opens the credential database for the duration of fn.
func withAdmin(fn func(*app.Admin) error) error {
	admin, err := app.OpenAdmin(app.LoadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()
	return fn(admin)
}

func getCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "serve",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, app.LoadConfig())
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunMigrations(app.LoadConfig(), commands.Stdout)
			},
		},
		{
			Name:  "register-service",
			Usage: "Register a service and print its API key",
			Flags: []cli.Flag{
				nameFlag(),
				&cli.StringFlag{
					Name:    "owner",
					Aliases: []string{"o"},
					Usage:   "Contact for the service, stored encrypted (needs S2S_FIELD_ENCRYPTION_KEY)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withAdmin(func(a *app.Admin) error {
					return commands.RunRegisterService(ctx, a.Credentials, a.Logger, commands.Stdout,
						cmd.String("name"), cmd.String("owner"), cmd.String("format"))
				})
			},
		},
		{
			Name:  "rotate-service-key",
			Usage: "Replace a service's API key",
			Flags: []cli.Flag{nameFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withAdmin(func(a *app.Admin) error {
					return commands.RunRotateServiceKey(ctx, a.Credentials, a.Logger, commands.Stdout,
						cmd.String("name"), cmd.String("format"))
				})
			},
		},
		{
			Name:  "disable-service",
			Usage: "Stop a service from obtaining new tokens",
			Flags: []cli.Flag{nameFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withAdmin(func(a *app.Admin) error {
					return commands.RunSetServiceDisabled(ctx, a.Credentials, a.Logger, commands.Stdout,
						cmd.String("name"), true)
				})
			},
		},
		{
			Name:  "enable-service",
			Usage: "Allow a disabled service to obtain tokens again",
			Flags: []cli.Flag{nameFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withAdmin(func(a *app.Admin) error {
					return commands.RunSetServiceDisabled(ctx, a.Credentials, a.Logger, commands.Stdout,
						cmd.String("name"), false)
				})
			},
		},
		{
			Name:  "list-services",
			Usage: "List registered services",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withAdmin(func(a *app.Admin) error {
					return commands.RunListServices(ctx, a.Credentials, commands.Stdout, cmd.String("format"))
				})
			},
		},
	}
}
