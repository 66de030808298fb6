// Package output renders command results as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"bugsentinel/internal/domain/preferences"
	"bugsentinel/internal/domain/snippet"
)

type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", Text:
		return Text, nil
	case JSON, YAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Render writes v in the requested format. Text output is delegated to
// text so each command keeps its own layout.
func Render(w io.Writer, f Format, v any, text func(io.Writer) error) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		if text == nil {
			_, err := fmt.Fprintf(w, "%v\n", v)
			return err
		}
		return text(w)
	}
}

// Palette holds the colours for one theme.
type Palette struct {
	OK    *color.Color
	Warn  *color.Color
	Error *color.Color
	Muted *color.Color
	Title *color.Color
}

func PaletteFor(t preferences.Theme) Palette {
	if t == preferences.ThemeDark {
		return Palette{
			OK:    color.New(color.FgHiGreen),
			Warn:  color.New(color.FgHiYellow),
			Error: color.New(color.FgHiRed),
			Muted: color.New(color.FgHiBlack),
			Title: color.New(color.FgHiWhite, color.Bold),
		}
	}
	return Palette{
		OK:    color.New(color.FgGreen),
		Warn:  color.New(color.FgYellow),
		Error: color.New(color.FgRed),
		Muted: color.New(color.FgBlue),
		Title: color.New(color.Bold),
	}
}

func (p Palette) Status(s snippet.SyncStatus) string {
	switch s {
	case snippet.SyncSynced:
		return p.OK.Sprint(s)
	case snippet.SyncError:
		return p.Error.Sprint(s)
	default:
		return p.Warn.Sprint(s)
	}
}

func (p Palette) Severity(sev string) string {
	switch strings.ToLower(sev) {
	case "high", "critical":
		return p.Error.Sprint(sev)
	case "medium":
		return p.Warn.Sprint(sev)
	default:
		return p.Muted.Sprint(sev)
	}
}

// SnippetTable prints one line per snippet, newest first as given.
func SnippetTable(w io.Writer, p Palette, list []snippet.View) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No snippets.")
		return err
	}
	for _, v := range list {
		if _, err := fmt.Fprintf(w, "%-26s  %-8s  %-10s  %s  %s\n",
			v.Ref, p.Status(v.SyncStatus), v.Language, v.UpdatedAt.Local().Format("2006-01-02 15:04"), v.Title); err != nil {
			return err
		}
	}
	return nil
}

func SnippetDetail(w io.Writer, p Palette, v snippet.View) error {
	fmt.Fprintf(w, "%s\n", p.Title.Sprint(v.Title))
	fmt.Fprintf(w, "id:       %s\n", v.Ref)
	fmt.Fprintf(w, "language: %s\n", v.Language.Label())
	fmt.Fprintf(w, "status:   %s\n", p.Status(v.SyncStatus))
	fmt.Fprintf(w, "updated:  %s\n\n", v.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, v.Code)
	if len(v.Analysis) > 0 {
		fmt.Fprintln(w)
		return Issues(w, p, v.Analysis)
	}
	return nil
}

func Issues(w io.Writer, p Palette, issues []snippet.Issue) error {
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, p.OK.Sprint("No issues found."))
		return err
	}
	for _, is := range issues {
		fmt.Fprintf(w, "%d:%d  %-8s  %-12s  %s\n", is.Line, is.Column, p.Severity(is.Severity), is.Type, is.Message)
		if is.Suggestion != "" {
			fmt.Fprintf(w, "      %s\n", p.Muted.Sprint(is.Suggestion))
		}
	}
	return nil
}
