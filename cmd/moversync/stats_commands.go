package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moversync/internal/moverlogs"
	"moversync/internal/opsaccess"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var trueRun bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for the latest mover run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				stats, err := access.MoverStats(requestContext(cmd), trueRun)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				if stats == nil {
					fmt.Fprintln(out, "No mover runs found")
					return nil
				}
				fmt.Fprintln(out, renderValueLine("File", stats.Filename))
				fmt.Fprintln(out, renderValueLine("Run", fmt.Sprintf("%s, %s", titleLabel(string(stats.Kind)), formatWhen(stats.Timestamp))))
				fmt.Fprintln(out, renderValueLine("Parsed as", titleLabel(string(stats.Mode))))
				fmt.Fprintln(out, renderValueLine("Kept on cache", formatCount(stats.Excluded)))
				fmt.Fprintln(out, renderValueLine("Bytes kept", formatBytes(stats.BytesKept)))
				fmt.Fprintln(out, renderValueLine("Moved", formatCount(stats.Moved)))
				fmt.Fprintln(out, renderValueLine("Errors", formatCount(stats.Errors)))
				fmt.Fprintln(out, renderValueLine("Efficiency", fmt.Sprintf("%.1f%%", stats.Efficiency)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&trueRun, "true-run", false, "Skip idle checks and report the latest run that moved files")
	return cmd
}

func newMoverLogsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mover-logs",
		Short: "List mover run files, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				sets, err := access.MoverLogs(requestContext(cmd))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if sets == nil {
						sets = []moverlogs.FileSet{}
					}
					return writeJSON(cmd, sets)
				}
				out := cmd.OutOrStdout()
				if len(sets) == 0 {
					fmt.Fprintln(out, "No mover run files found")
					return nil
				}
				rows := make([][]string, 0, len(sets))
				for _, set := range sets {
					rows = append(rows, []string{set.Stamp, titleLabel(string(set.Kind)), fileCell(set.List), fileCell(set.Log)})
				}
				fmt.Fprintln(out, renderTable([]string{"Stamp", "Kind", "List", "Log"}, rows, nil))
				return nil
			})
		},
	}
}

func fileCell(info *moverlogs.FileInfo) string {
	if info == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", info.Name, formatBytes(info.Size))
}
