// askplexi is the command-line companion to the plexd daemon: it asks a
// question, lists known conversations, or checks service health over HTTP.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL string
	var timeout int

	root := &cobra.Command{
		Use:           "askplexi",
		Short:         "Ask questions through a plexd daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("PLEXD_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8088"
	}
	root.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "base URL of the plexd daemon")
	root.PersistentFlags().IntVar(&timeout, "timeout", 300, "request timeout in seconds")

	client := func() *apiClient {
		return newAPIClient(strings.TrimSuffix(serverURL, "/"), time.Duration(timeout)*time.Second)
	}

	root.AddCommand(newAskCmd(client))
	root.AddCommand(newSessionsCmd(client))
	root.AddCommand(newHealthCmd(client))
	return root
}

func newAskCmd(client func() *apiClient) *cobra.Command {
	var sessionID string
	var sources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			res, err := client().ask(cmd.Context(), question, sessionID, sources)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", res.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing session by id")
	cmd.Flags().BoolVar(&sources, "sources", false, "keep citations and source URLs in the answer")
	return cmd
}

func newSessionsCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List known conversation sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := client().sessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(res.Sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range res.Sessions {
				marker := " "
				if s.Current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  last used %s\n  %s\n",
					marker, s.ID, s.LastUsedAt.Local().Format(time.RFC3339), s.URL)
			}
			return nil
		},
	}
}

func newHealthCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := client().health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Status, res.Message)
			if res.Status != "ok" {
				return fmt.Errorf("service not ready")
			}
			return nil
		},
	}
}
