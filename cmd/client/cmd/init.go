package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bugsentinel/cmd/client/cmd/ai"
	"bugsentinel/cmd/client/cmd/auth"
	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/cmd/client/cmd/prefs"
	"bugsentinel/cmd/client/cmd/snippet"
	"bugsentinel/cmd/client/cmd/sync"
	"bugsentinel/internal/app/client/engine"
	"bugsentinel/internal/app/client/gateway"
)

type fileConfig struct {
	ServerAddress string `yaml:"server_address"`
	EnableTLS     bool   `yaml:"enable_tls"`
	SyncInterval  int    `yaml:"sync_interval_seconds"`
	ProbeInterval int    `yaml:"probe_interval_seconds"`
	AIModel       string `yaml:"ai_model,omitempty"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the BugSentinel config and check the server",
	Long: `init writes ~/.bugsentinel/config.yaml with the current settings
(unless it exists) and checks whether the server answers.

BugSentinel works without the server; changes are uploaded once it is
reachable.`,
	Annotations: map[string]string{cmdutil.SkipApp: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		path := filepath.Join(cfg.ConfigDir, "config.yaml")

		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			b, err := yaml.Marshal(fileConfig{
				ServerAddress: cfg.ServerAddress,
				EnableTLS:     cfg.EnableTLS,
				SyncInterval:  int(cfg.SyncInterval / time.Second),
				ProbeInterval: int(cfg.ProbeInterval / time.Second),
				AIModel:       cfg.AIModel,
			})
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if err := os.WriteFile(path, b, 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
		} else {
			fmt.Fprintf(out, "Config already exists: %s\n", path)
		}

		gw, err := gateway.NewHTTPGateway(gateway.Config{
			ServerAddress: cfg.ServerAddress,
			EnableTLS:     cfg.EnableTLS,
		}, log)
		if err != nil {
			return err
		}

		p := cmdutil.Palette(cmd)
		if engine.Probe(cmd.Context(), gw, 5*time.Second) {
			fmt.Fprintf(out, "Server %s: %s\n", cfg.ServerAddress, p.OK.Sprint("reachable"))
		} else {
			fmt.Fprintf(out, "Server %s: %s (working offline)\n", cfg.ServerAddress, p.Warn.Sprint("unreachable"))
		}
		if cfg.AIAPIKey == "" {
			fmt.Fprintln(out, "AI analysis is off; set AI_API_KEY to enable it.")
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  bugsentinel auth signup")
		fmt.Fprintln(out, "  bugsentinel snippet create --language go --file main.go")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(languagesCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.SignUpCmd, auth.SignInCmd, auth.SignOutCmd, auth.WhoAmICmd)

	rootCmd.AddCommand(snippet.SnippetCmd)
	snippet.SnippetCmd.AddCommand(
		snippet.CreateCmd,
		snippet.ListCmd,
		snippet.GetCmd,
		snippet.UpdateCmd,
		snippet.DeleteCmd,
		snippet.OpenCmd,
		snippet.WatchCmd,
	)

	rootCmd.AddCommand(sync.SyncCmd)

	rootCmd.AddCommand(prefs.PrefsCmd)
	prefs.PrefsCmd.AddCommand(prefs.GetCmd, prefs.SetCmd, prefs.ExportCmd, prefs.ImportCmd)

	rootCmd.AddCommand(ai.AICmd)
	ai.AICmd.AddCommand(ai.AnalyzeCmd, ai.RefactorCmd, ai.SuggestCmd, ai.AllCmd)
}
