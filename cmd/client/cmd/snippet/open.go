package snippet

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	domain "bugsentinel/internal/domain/snippet"
)

// OpenCmd makes a snippet the current one, or reopens the last one.
var OpenCmd = &cobra.Command{
	Use:   "open [id]",
	Short: "Open a snippet, or the one you worked on last",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		var v *domain.View
		if len(args) == 1 {
			ref, err := domain.ParseRef(args[0])
			if err != nil {
				return err
			}
			if v, err = cmdutil.Check(app.Service.SetCurrentSnippet(ctx, ref)); err != nil {
				return err
			}
		} else if v, err = cmdutil.Check(app.Service.LoadLastSnippet(ctx)); err != nil {
			return err
		}

		return cmdutil.Print(cmd, v, func(w io.Writer, p output.Palette) error {
			if v == nil {
				_, err := fmt.Fprintln(w, p.Muted.Sprint("No snippet was open last time."))
				return err
			}
			return output.SnippetDetail(w, p, *v)
		})
	},
}
