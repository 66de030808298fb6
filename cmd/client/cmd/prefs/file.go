package prefs

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/prefsfile"
)

var ExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write preferences as TOML to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if len(args) == 0 || args[0] == "-" {
			return prefsfile.Export(cmd.OutOrStdout(), prefs)
		}
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		if err := prefsfile.Export(f, prefs); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Preferences written to %s\n", args[0])
		return nil
	},
}

var ImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Apply preferences from a TOML file, - for stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		current, err := cmdutil.Check(app.Service.GetPreferences(ctx))
		if err != nil {
			return err
		}
		req, err := prefsfile.Import(r, current)
		if err != nil {
			return err
		}
		if _, err := cmdutil.Check(app.Service.SavePreferences(ctx, req)); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Preferences imported.")
		return nil
	},
}
