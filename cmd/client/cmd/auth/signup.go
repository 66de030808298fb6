package auth

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/domain/user"
)

const minPasswordLen = 8

var SignUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
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
		if !passwordStdin {
			confirm, err := readPassword(cmd, "Repeat password: ")
			if err != nil {
				return err
			}
			if confirm != password {
				return errors.New("passwords do not match")
			}
		}
		if len(password) < minPasswordLen {
			return fmt.Errorf("password must be at least %d characters", minPasswordLen)
		}

		ctx, cancel := cmdutil.Timeout(cmd)
		defer cancel()

		u, err := cmdutil.Check(app.Service.SignUp(ctx, user.Credentials{Email: addr, Password: password}))
		if err != nil {
			return fmt.Errorf("sign up: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Account created, signed in as %s\n", u.Email)
		return nil
	},
}

func init() {
	addCredentialFlags(SignUpCmd)
}
