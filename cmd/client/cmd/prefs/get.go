package prefs

import (
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
)

var GetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current preferences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		prefs, err := cmdutil.Check(app.Service.GetPreferences(ctx))
		if err != nil {
			return err
		}
		return cmdutil.Print(cmd, prefs, func(w io.Writer, p output.Palette) error {
			return printPrefs(w, output.PaletteFor(prefs.Theme), prefs)
		})
	},
}
