package ai

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client"
	domain "bugsentinel/internal/domain/snippet"
)

var AICmd = &cobra.Command{
	Use:   "ai",
	Short: "Analyze code with the AI assistant",
	Long: `Find bugs, get refactoring ideas and completion suggestions.

Requires AI_API_KEY. Answers are cached and calls are rate limited.`,
}

// source is where a command takes its code from: a saved snippet, or
// --code/--file with --language.
type source struct {
	code     string
	file     string
	language string
}

func (s *source) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&s.code, "code", "c", "", "code to analyze")
	f.StringVarP(&s.file, "file", "f", "", "read code from file, - for stdin")
	f.StringVarP(&s.language, "language", "l", "", "language of --code or --file")
}

// resolve returns the code and language from args[0] or the flags.
func (s *source) resolve(cmd *cobra.Command, app *client.App, args []string) (string, domain.Language, error) {
	if len(args) == 1 {
		ref, err := domain.ParseRef(args[0])
		if err != nil {
			return "", "", err
		}
		v, err := cmdutil.Check(app.Service.GetSnippet(cmd.Context(), ref))
		if err != nil {
			return "", "", err
		}
		return v.Code, v.Language, nil
	}

	code, given, err := cmdutil.ReadCode(cmd, s.code, s.file)
	if err != nil {
		return "", "", err
	}
	if !given {
		return "", "", errors.New("give a snippet id, or code with --code or --file")
	}
	lang := domain.Language(s.language)
	if !lang.IsSupported() {
		return "", "", fmt.Errorf("--language is required with --code or --file, got %q", s.language)
	}
	return code, lang, nil
}

func requireAI(app *client.App) error {
	if !app.AI.Available() {
		return errors.New("AI is not configured, set AI_API_KEY")
	}
	return nil
}
