package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// AuthCmd groups the account commands.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your BugSentinel account",
	Long:  `Sign up, sign in, sign out and show the current user.`,
}

var (
	email         string
	passwordStdin bool
)

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
}

func readEmail(cmd *cobra.Command) (string, error) {
	if email != "" {
		return strings.TrimSpace(email), nil
	}
	fmt.Fprint(cmd.OutOrStdout(), "Email: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read email: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts without echo on a terminal, or reads one line from
// stdin with --password-stdin.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.OutOrStdout(), prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
