package prefs

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	"bugsentinel/internal/domain/preferences"
)

var setFlags struct {
	theme       string
	fontSize    int
	tabSize     int
	wordWrap    string
	minimap     bool
	lineNumbers string
}

var SetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Change preferences",
	Example: `  bugsentinel prefs set --theme dark --font-size 16`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		current, err := cmdutil.Check(app.Service.GetPreferences(ctx))
		if err != nil {
			return err
		}
		req, err := buildRequest(cmd, current)
		if err != nil {
			return err
		}

		saved, err := cmdutil.Check(app.Service.SavePreferences(ctx, req))
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, saved, func(w io.Writer, _ output.Palette) error {
			return printPrefs(w, output.PaletteFor(saved.Theme), saved)
		})
	},
}

func init() {
	f := SetCmd.Flags()
	f.StringVar(&setFlags.theme, "theme", "", "light or dark")
	f.IntVar(&setFlags.fontSize, "font-size", 0, "editor font size, 8 to 48")
	f.IntVar(&setFlags.tabSize, "tab-size", 0, "editor tab size, 1 to 8")
	f.StringVar(&setFlags.wordWrap, "word-wrap", "", "on or off")
	f.BoolVar(&setFlags.minimap, "minimap", false, "show the minimap")
	f.StringVar(&setFlags.lineNumbers, "line-numbers", "", "on or off")
}

func buildRequest(cmd *cobra.Command, current preferences.Preferences) (preferences.UpsertRequest, error) {
	var req preferences.UpsertRequest
	flags := cmd.Flags()

	if flags.Changed("theme") {
		t := preferences.Theme(strings.ToLower(setFlags.theme))
		req.Theme = &t
	}

	es := current.EditorSettings
	editor := false
	if flags.Changed("font-size") {
		es.FontSize, editor = setFlags.fontSize, true
	}
	if flags.Changed("tab-size") {
		es.TabSize, editor = setFlags.tabSize, true
	}
	if flags.Changed("word-wrap") {
		v, err := onOff("word-wrap", setFlags.wordWrap)
		if err != nil {
			return req, err
		}
		es.WordWrap, editor = v, true
	}
	if flags.Changed("minimap") {
		es.Minimap, editor = setFlags.minimap, true
	}
	if flags.Changed("line-numbers") {
		v, err := onOff("line-numbers", setFlags.lineNumbers)
		if err != nil {
			return req, err
		}
		es.LineNumbers, editor = v, true
	}
	if editor {
		req.EditorSettings = &es
	}

	if req.Theme == nil && req.EditorSettings == nil {
		return req, errors.New("nothing to change, see --help for the available flags")
	}
	return req, req.Validate()
}

func onOff(flag, v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v != "on" && v != "off" {
		return "", fmt.Errorf("--%s must be on or off, got %q", flag, v)
	}
	return v, nil
}
