package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"bugsentinel/cmd/client/cmd/cmdutil"
	"bugsentinel/internal/app/client/output"
	"bugsentinel/internal/app/client/state"
	domainsnippet "bugsentinel/internal/domain/snippet"
)

type statusView struct {
	Server      string           `json:"server" yaml:"server"`
	User        string           `json:"user,omitempty" yaml:"user,omitempty"`
	Connection  state.Connection `json:"connection" yaml:"connection"`
	Snippets    int              `json:"local_snippets" yaml:"local_snippets"`
	AIAvailable bool             `json:"ai_available" yaml:"ai_available"`
	AIRemaining int              `json:"ai_requests_remaining" yaml:"ai_requests_remaining"`
}

var statusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show connection, session and pending changes",
	Annotations: map[string]string{cmdutil.SkipCatchUp: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := cmdutil.App(cmd)
		if err != nil {
			return err
		}

		v := statusView{
			Server:      app.Config.ServerAddress,
			Connection:  app.Engine.Status(),
			Snippets:    len(app.Store.ListSnippets()),
			AIAvailable: app.AI.Available(),
			AIRemaining: app.AI.Remaining(),
		}
		if u := app.Gateway.CurrentUser(); u != nil {
			v.User = u.Email
		}

		return cmdutil.Print(cmd, v, func(w io.Writer, p output.Palette) error {
			online := p.Warn.Sprint("offline")
			if v.Connection.IsOnline {
				online = p.OK.Sprint("online")
			}
			user := p.Muted.Sprint("not signed in")
			if v.User != "" {
				user = v.User
			}
			last := "never"
			if v.Connection.LastSync != nil {
				last = v.Connection.LastSync.Local().Format(time.DateTime)
			}

			fmt.Fprintf(w, "Server:          %s (%s)\n", v.Server, online)
			fmt.Fprintf(w, "User:            %s\n", user)
			fmt.Fprintf(w, "Local snippets:  %d\n", v.Snippets)
			fmt.Fprintf(w, "Pending changes: %d\n", v.Connection.PendingChanges)
			fmt.Fprintf(w, "Last sync:       %s\n", last)
			if v.AIAvailable {
				fmt.Fprintf(w, "AI requests:     %d left this hour\n", v.AIRemaining)
			} else {
				fmt.Fprintf(w, "AI requests:     %s\n", p.Muted.Sprint("disabled"))
			}
			return nil
		})
	},
}

var languagesCmd = &cobra.Command{
	Use:         "languages",
	Short:       "List supported languages",
	Annotations: map[string]string{cmdutil.SkipApp: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		list := domainsnippet.SupportedLanguages()
		return cmdutil.Print(cmd, list, func(w io.Writer, _ output.Palette) error {
			for _, l := range list {
				fmt.Fprintf(w, "%-12s %s\n", l.Value, l.Label)
			}
			return nil
		})
	},
}
