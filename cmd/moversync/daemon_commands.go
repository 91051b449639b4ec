package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"moversync/internal/daemonctl"
	"moversync/internal/daemonrun"
	"moversync/internal/ipc"
	"moversync/internal/opsaccess"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	runCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the moversync daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")

	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the moversync daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx, startLogLevel), 10*time.Second)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			if result.APIAddr != "" {
				fmt.Fprintf(stdout, "API listening on %s\n", result.APIAddr)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the moversync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, exclusion file, and mover status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				status, err := access.Status(requestContext(cmd))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd.OutOrStdout(), status, access.Remote())
				return nil
			})
		},
	}

	return []*cobra.Command{runCmd, startCmd, stopCmd, statusCmd}
}

func renderStatus(out io.Writer, status ipc.StatusResponse, remote bool) {
	colorize := shouldColorize(out)
	daemon := status.Daemon
	ops := status.Operations

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if remote && daemon.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d, since %s)", daemon.PID, formatWhen(daemon.StartedAt)), colorize))
		if daemon.APIAddress != "" {
			fmt.Fprintln(out, renderValueLine("API", daemon.APIAddress))
		}
		fmt.Fprintln(out, renderValueLine("Log watcher", yesNo(daemon.Watching)))
		for _, job := range daemon.Jobs {
			fmt.Fprintln(out, renderValueLine(titleLabel(job.Name), fmt.Sprintf("%s, next %s", job.Spec, formatWhen(job.Next))))
		}
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running; showing local state", colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Exclusions", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderValueLine("File", ops.OutputPath))
	fmt.Fprintln(out, renderValueLine("Entries", fmt.Sprintf("%s (%s files, %s directories)",
		formatCount(ops.Exclusions.TotalCount), formatCount(ops.Exclusions.Files), formatCount(ops.Exclusions.Directories))))
	fmt.Fprintln(out, renderValueLine("Custom folders", formatCount(len(ops.Settings.CustomFolders))))
	if run := ops.LastRun; run != nil {
		kind := statusOK
		switch run.Status {
		case "partial":
			kind = statusWarn
		case "error":
			kind = statusError
		}
		detail := fmt.Sprintf("%s, %s entries, %s", titleLabel(run.Status), formatCount(run.TotalWritten), formatWhen(run.FinishedAt))
		fmt.Fprintln(out, renderStatusLine("Last build", kind, detail, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Last build", statusInfo, "never", colorize))
	}
	fmt.Fprintln(out, renderValueLine("Last sync", formatWhen(ops.Settings.LastSync)))
	if len(ops.Markers) > 0 {
		names := make([]string, 0, len(ops.Markers))
		for name := range ops.Markers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(out, renderValueLine(titleLabel(name), formatWhen(ops.Markers[name])))
		}
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Mover", colorize) {
		fmt.Fprintln(out, line)
	}
	if stats := ops.Mover; stats != nil {
		fmt.Fprintln(out, renderValueLine("Latest run", fmt.Sprintf("%s (%s)", stats.Filename, titleLabel(string(stats.Kind)))))
		fmt.Fprintln(out, renderValueLine("Kept on cache", fmt.Sprintf("%s files, %s", formatCount(stats.Excluded), formatBytes(stats.BytesKept))))
		fmt.Fprintln(out, renderValueLine("Moved", formatCount(stats.Moved)))
		fmt.Fprintln(out, renderValueLine("Efficiency", fmt.Sprintf("%.1f%%", stats.Efficiency)))
		if stats.Errors > 0 {
			fmt.Fprintln(out, renderStatusLine("Errors", statusWarn, formatCount(stats.Errors), colorize))
		}
	} else {
		fmt.Fprintln(out, renderStatusLine("Latest run", statusInfo, "no mover runs found", colorize))
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: logLevel}
	if ctx.configPath != "" {
		opts.ConfigPath = ctx.configPath
	} else if ctx.configFlag != nil {
		opts.ConfigPath = strings.TrimSpace(*ctx.configFlag)
	}
	return opts
}
