package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
)

var force bool

var SignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and remove local data",
	Long: `signout uploads pending changes if the server is reachable, then
removes the session and all local data from this device.

It refuses while changes are still pending unless --force is given.`,
	Annotations: map[string]string{cmdutil.SkipCatchUp: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		if _, err := cmdutil.Check(app.Service.SignOut(ctx, force)); err != nil {
			return fmt.Errorf("sign out: %w (use --force to discard them)", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Signed out. Local data removed.")
		return nil
	},
}

func init() {
	SignOutCmd.Flags().BoolVarP(&force, "force", "f", false, "discard unsynced changes")
}
