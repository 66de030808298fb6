// Package cmdutil holds helpers shared by the client commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bugsentinel/internal/app/client"
	"bugsentinel/internal/app/client/output"
	"bugsentinel/internal/app/client/service"
	"bugsentinel/internal/domain/preferences"
)

// SkipApp marks commands that run without the client being wired.
const SkipApp = "bugsentinel/skip-app"

// SkipCatchUp marks commands that must not upload pending changes first.
const SkipCatchUp = "bugsentinel/skip-catch-up"

const DefaultTimeout = 30 * time.Second

func App(cmd *cobra.Command) (*client.App, error) {
	return client.FromContext(cmd.Context())
}

func Format(cmd *cobra.Command) output.Format {
	f := cmd.Flag("output")
	if f == nil {
		return output.Text
	}
	format, err := output.ParseFormat(f.Value.String())
	if err != nil {
		return output.Text
	}
	return format
}

// Palette picks colours from the locally stored theme.
func Palette(cmd *cobra.Command) output.Palette {
	theme := preferences.ThemeLight
	if app, err := App(cmd); err == nil {
		if p := app.Store.GetPreferences(); p != nil {
			theme = p.Theme
		}
	}
	return output.PaletteFor(theme)
}

// Print renders v in the selected format; text is used for plain output.
func Print(cmd *cobra.Command, v any, text func(w io.Writer, p output.Palette) error) error {
	var textFn func(io.Writer) error
	if text != nil {
		p := Palette(cmd)
		textFn = func(w io.Writer) error { return text(w, p) }
	}
	return output.Render(cmd.OutOrStdout(), Format(cmd), v, textFn)
}

// Check turns a failed Result into an error.
func Check[T any](r service.Result[T]) (T, error) {
	return r.Data, r.Err()
}

func Timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), DefaultTimeout)
}

// ReadCode returns inline code, or the content of file ("-" for stdin).
func ReadCode(cmd *cobra.Command, inline, file string) (string, bool, error) {
	switch {
	case inline != "" && file != "":
		return "", false, fmt.Errorf("use either --code or --file, not both")
	case inline != "":
		return inline, true, nil
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, fmt.Errorf("read stdin: %w", err)
		}
		return string(b), true, nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), true, nil
	}
	return "", false, nil
}

// Confirm asks a yes/no question on the command's streams.
func Confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	var answer string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
