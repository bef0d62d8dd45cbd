package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/xhad/newsrag/server"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the news page and rebuild the headline index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return a.refresh(cmd.Context())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the indexed headlines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return a.ask(cmd.Context(), strings.Join(args, " "))
	},
}

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List the indexed headlines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		printNews(a.service.Items())
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over WebSocket",
	Long: `Starts an HTTP server with a WebSocket endpoint at /ws accepting
{"type":"refresh"} and {"type":"ask","content":"..."} messages, plus /health
and /news.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		srv, err := server.NewWSServer(server.Config{
			Addr:   a.config.Server.Addr,
			Logger: a.log,
		}, a.service)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd, askCmd, newsCmd, serveCmd)
}
