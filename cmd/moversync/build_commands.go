package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"moversync/internal/exclusions"
	"moversync/internal/operations"
	"moversync/internal/opsaccess"
	"moversync/internal/state"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the mover exclusion file from the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, ctx, false)
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Check managers, refresh tag caches, then rebuild the exclusion file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, ctx, true)
		},
	}
}

func runBuild(cmd *cobra.Command, ctx *commandContext, full bool) error {
	return ctx.withSession(func(access opsaccess.Access) error {
		resp, err := access.Build(requestContext(cmd), full)
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			if err := writeJSON(cmd, resp); err != nil {
				return err
			}
		} else {
			renderBuild(cmd.OutOrStdout(), resp)
		}
		if !resp.OK() {
			return fmt.Errorf("build failed: %s", resp.Message)
		}
		return nil
	})
}

func renderBuild(out io.Writer, resp operations.BuildResponse) {
	colorize := shouldColorize(out)
	kind := statusOK
	switch {
	case resp.Busy:
		kind = statusWarn
	case resp.Status == operations.StatusPartial:
		kind = statusWarn
	case resp.Status == operations.StatusError:
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Build", kind, resp.Message, colorize))
	result := resp.Result
	if result == nil {
		return
	}
	fmt.Fprintln(out, renderValueLine("Output", result.OutputPath))
	fmt.Fprintln(out, renderValueLine("Written", formatCount(result.TotalWritten)))
	fmt.Fprintln(out, renderValueLine("Candidates", formatCount(result.CandidateCount)))
	if result.SkippedCount > 0 {
		fmt.Fprintln(out, renderValueLine("Skipped", formatCount(result.SkippedCount)))
	}
	fmt.Fprintln(out, renderValueLine("Duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()))

	rows := make([][]string, 0, len(result.PerSource))
	for _, source := range exclusions.Sources {
		if count, ok := result.PerSource[source]; ok {
			rows = append(rows, []string{titleLabel(string(source)), formatCount(count)})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Source", "Candidates"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
	for _, se := range result.SourceErrors {
		fmt.Fprintln(out, renderStatusLine(titleLabel(string(se.Source)), statusWarn, se.Message, colorize))
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent exclusion builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				runs, err := access.History(requestContext(cmd), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No builds recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Finished", "Trigger", "Status", "Written", "Candidates", "Errors"},
					historyRows(runs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of builds to show")
	return cmd
}

func historyRows(runs []state.BuildRun) [][]string {
	sorted := append([]state.BuildRun(nil), runs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	rows := make([][]string, 0, len(sorted))
	for _, run := range sorted {
		trigger := run.Trigger
		if trigger == "" {
			trigger = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			trigger,
			titleLabel(run.Status),
			formatCount(run.TotalWritten),
			formatCount(run.CandidateCount),
			formatCount(run.SourceErrors),
		})
	}
	return rows
}
