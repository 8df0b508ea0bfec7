package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/s2sauth/internal/auth/service"
)

// RunRegisterService registers a service and prints its API key once.
func RunRegisterService(
	ctx context.Context,
	creds *service.CredentialService,
	logger *slog.Logger,
	w io.Writer,
	name, owner, format string,
) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	apiKey, err := creds.Register(ctx, name, owner)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	logger.Info("service registered", slog.String("service", name))

	return printKey(w, "Service registered", name, apiKey, format)
}

// RunRotateServiceKey replaces a service's API key and prints the new one.
func RunRotateServiceKey(
	ctx context.Context,
	creds *service.CredentialService,
	logger *slog.Logger,
	w io.Writer,
	name, format string,
) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	apiKey, err := creds.RotateKey(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}
	logger.Info("service key rotated", slog.String("service", name))

	return printKey(w, "API key rotated", name, apiKey, format)
}

// RunSetServiceDisabled disables or re-enables a service.
func RunSetServiceDisabled(
	ctx context.Context,
	creds *service.CredentialService,
	logger *slog.Logger,
	w io.Writer,
	name string,
	disabled bool,
) error {
	if err := creds.SetDisabled(ctx, name, disabled); err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}

	state := "enabled"
	if disabled {
		state = "disabled"
	}
	logger.Info("service status changed", slog.String("service", name), slog.Bool("disabled", disabled))

	_, err := fmt.Fprintf(w, "Service %s %s\n", name, state)
	return err
}

// RunListServices prints every registered service.
func RunListServices(
	ctx context.Context,
	creds *service.CredentialService,
	w io.Writer,
	format string,
) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	list, err := creds.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	if format == FormatJSON {
		if list == nil {
			list = []service.CredentialInfo{}
		}
		return writeJSON(w, list)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SERVICE\tOWNER\tSTATUS\tCREATED\tLAST USED")
	for _, c := range list {
		status := "active"
		if c.Disabled {
			status = "disabled"
		}
		lastUsed := "never"
		if c.LastUsedAt != nil {
			lastUsed = c.LastUsedAt.UTC().Format(time.RFC3339)
		}
		owner := c.Owner
		if owner == "" {
			owner = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ServiceName, owner, status, c.CreatedAt.UTC().Format(time.RFC3339), lastUsed)
	}
	return tw.Flush()
}

func printKey(w io.Writer, title, name, apiKey, format string) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]string{
			"serviceName": name,
			"apiKey":      apiKey,
		})
	}

	_, _ = fmt.Fprintf(w, "\n%s!\n", title)
	_, _ = fmt.Fprintf(w, "Service: %s\n", name)
	_, _ = fmt.Fprintf(w, "API key: %s\n", apiKey)
	_, err := fmt.Fprintln(w, "\nIMPORTANT: The API key is shown only once. Store it securely.")
	return err
}
