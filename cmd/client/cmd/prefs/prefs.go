package prefs

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/internal/app/client/output"
	"bugsentinel/internal/domain/preferences"
)

var PrefsCmd = &cobra.Command{
	Use:     "prefs",
	Aliases: []string{"preferences"},
	Short:   "Show and change editor preferences",
}

func printPrefs(w io.Writer, p output.Palette, prefs preferences.Preferences) error {
	es := prefs.EditorSettings
	fmt.Fprintf(w, "%s\n", p.Title.Sprint("Preferences"))
	fmt.Fprintf(w, "theme:         %s\n", prefs.Theme)
	fmt.Fprintf(w, "font size:     %d\n", es.FontSize)
	fmt.Fprintf(w, "tab size:      %d\n", es.TabSize)
	fmt.Fprintf(w, "word wrap:     %s\n", es.WordWrap)
	fmt.Fprintf(w, "minimap:       %t\n", es.Minimap)
	fmt.Fprintf(w, "line numbers:  %s\n", es.LineNumbers)
	if prefs.LastSnippetID != "" {
		fmt.Fprintf(w, "last snippet:  %s\n", prefs.LastSnippetID)
	}
	return nil
}
