package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client"
	"bugsentinel/internal/app/client/config"
	"bugsentinel/internal/app/client/output"
	baseconfig "bugsentinel/internal/config"
	"bugsentinel/internal/utils/logger"
)

var (
	cfgFile      string
	debug        bool
	outputFormat string
	serverURL    string

	cfg *config.Config
	log *slog.Logger
	app *client.App
)

var rootCmd = &cobra.Command{
	Use:   "bugsentinel",
	Short: "BugSentinel - offline-first code snippet manager with AI analysis",
	Long: `BugSentinel keeps your code snippets on this device and on the server.

Changes made while offline are queued locally and uploaded automatically
once the server is reachable again.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if app != nil {
		app.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if _, err := output.ParseFormat(outputFormat); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	if debug {
		log = logger.NewWithWriter(baseconfig.EnvLocal, os.Stderr)
	} else {
		log = logger.NewWithFile(cfg.Env, cfg.LogFile)
	}

	if cmd.Annotations[cmdutil.SkipApp] != "" {
		return nil
	}

	app, err = client.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	if cmd.Annotations[cmdutil.SkipCatchUp] == "" {
		app.CatchUp(cmd.Context())
	}

	cmd.SetContext(client.WithApp(cmd.Context(), app))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.bugsentinel/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log to stderr at debug level")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server address (host:port)")
}
