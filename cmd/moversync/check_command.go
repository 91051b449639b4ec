package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moversync/internal/operations"
	"moversync/internal/opsaccess"
	"moversync/internal/preflight"
)

type checkReport struct {
	Checks      []preflight.Result            `json:"checks"`
	Connections []operations.ConnectionStatus `json:"connections"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check directories and manager connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				reqCtx := requestContext(cmd)
				results, err := access.Check(reqCtx)
				if err != nil {
					return err
				}
				conns, err := access.Connections(reqCtx)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, checkReport{Checks: results, Connections: conns}); err != nil {
						return err
					}
				} else {
					renderChecks(cmd, results, conns)
				}
				if preflight.AnyFailed(results) {
					return fmt.Errorf("one or more required checks failed")
				}
				return nil
			})
		},
	}
}

func renderChecks(cmd *cobra.Command, results []preflight.Result, conns []operations.ConnectionStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range results {
		kind := statusOK
		switch {
		case result.Failed():
			kind = statusError
		case !result.Passed:
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Connections", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, conn := range conns {
		switch {
		case !conn.Configured:
			fmt.Fprintln(out, renderStatusLine(titleLabel(conn.Manager), statusInfo, "not configured", colorize))
		case conn.OK:
			fmt.Fprintln(out, renderStatusLine(titleLabel(conn.Manager), statusOK, "reachable", colorize))
		default:
			fmt.Fprintln(out, renderStatusLine(titleLabel(conn.Manager), statusError, conn.Error, colorize))
		}
	}
}
