package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/domain/user"
)

var SignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and download your snippets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		addr, err := readEmail(cmd)
		if err != nil {
			return err
		}
		password, err := readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		u, err := cmdutil.Check(app.Service.SignIn(ctx, user.Credentials{Email: addr, Password: password}))
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Signed in as %s\n", u.Email)

		app.Service.GetPreferences(ctx)
		list := app.Service.LoadSnippets(ctx).Wait(ctx)
		if !list.OK() {
			fmt.Fprintf(out, "Could not download snippets: %s\n", list.Error)
			return nil
		}
		fmt.Fprintf(out, "%d snippets available\n", len(list.Data))
		return nil
	},
}

func init() {
	addCredentialFlags(SignInCmd)
}
