package snippet

import (
	"fmt"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	domain "bugsentinel/internal/domain/snippet"
)

var deleteYes bool

var DeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a snippet",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}
		ref, err := domain.ParseRef(args[0])
		if err != nil {
			return err
		}

		if !deleteYes && !cmdutil.Confirm(cmd, fmt.Sprintf("Delete snippet %s?", ref)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		if _, err := cmdutil.Check(app.Service.DeleteSnippet(ctx, ref)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", ref)
		return nil
	},
}

func init() {
	DeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
}
