// Package commands implements the s2s-auth CLI subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Stdout is where command output goes unless a test swaps it.
var Stdout io.Writer = os.Stdout

func checkFormat(format string) error {
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("unknown format %q: use 'text' or 'json'", format)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
