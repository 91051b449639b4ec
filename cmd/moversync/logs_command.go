package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"moversync/internal/ipc"
	"moversync/internal/logs"
	"moversync/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow    bool
		lines     int
		level     string
		component string
		search    string
		apiURL    string
		token     string
		clearLog  bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter := logs.Filter{Level: level, Component: component, Search: search}

			if clearLog {
				if err := logs.Clear(cfg.CurrentLogPath()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Log cleared")
				return nil
			}

			var sources []logstream.Source
			if strings.TrimSpace(apiURL) != "" {
				if token == "" {
					token = cfg.Paths.APIToken
				}
				client, err := logs.NewStreamClient(apiURL, token)
				if err != nil {
					return fmt.Errorf("api url: %w", err)
				}
				sources = append(sources, logstream.APISource(client, filter))
			}
			if client, err := ipc.Dial(ctx.socketPath()); err == nil {
				defer client.Close()
				sources = append(sources, logstream.IPCSource(client, filter))
			} else {
				sources = append(sources, logstream.FileSource(cfg.CurrentLogPath(), filter))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			_, err = logstream.Stream(runCtx, logstream.Options{Lines: lines, Follow: follow}, func(line string) {
				fmt.Fprintln(out, line)
			}, sources...)
			return err
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", logs.DefaultLimit, "Number of trailing lines to show")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&component, "component", "", "Only lines from this component")
	cmd.Flags().StringVar(&search, "search", "", "Only lines containing this text")
	cmd.Flags().StringVar(&apiURL, "api", "", "Read the log from a daemon HTTP API instead of the local socket")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for --api (defaults to paths.api_token)")
	cmd.Flags().BoolVar(&clearLog, "clear", false, "Truncate the current log file")
	return cmd
}
