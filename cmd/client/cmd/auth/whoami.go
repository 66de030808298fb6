package auth

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
)

var WhoAmICmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		u, err := cmdutil.Check(app.Service.CurrentUser(ctx))
		if err != nil {
			return err
		}

		return cmdutil.Print(cmd, u, func(w io.Writer, p output.Palette) error {
			if u == nil {
				_, err := fmt.Fprintln(w, p.Muted.Sprint("Not signed in."))
				return err
			}
			_, err := fmt.Fprintf(w, "%s (%s)\n", u.Email, u.ID)
			return err
		})
	},
}
