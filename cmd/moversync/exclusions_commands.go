package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"moversync/internal/opsaccess"
)

func newExclusionsCommand(ctx *commandContext) *cobra.Command {
	exclusionsCmd := &cobra.Command{
		Use:     "exclusions",
		Aliases: []string{"ex"},
		Short:   "Inspect the mover exclusion file",
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count exclusion entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				summary, err := access.ExclusionStats(requestContext(cmd))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, summary)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderValueLine("Total", formatCount(summary.TotalCount)))
				fmt.Fprintln(out, renderValueLine("Files", formatCount(summary.Files)))
				fmt.Fprintln(out, renderValueLine("Directories", formatCount(summary.Directories)))
				return nil
			})
		},
	}

	var filter string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print exclusion entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				resp, err := access.Exclusions(requestContext(cmd))
				if err != nil {
					return err
				}
				if needle := strings.ToLower(strings.TrimSpace(filter)); needle != "" {
					kept := resp.Entries[:0]
					for _, entry := range resp.Entries {
						if strings.Contains(strings.ToLower(entry), needle) {
							kept = append(kept, entry)
						}
					}
					resp.Entries = kept
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				for _, entry := range resp.Entries {
					fmt.Fprintln(out, entry)
				}
				return nil
			})
		},
	}
	showCmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show entries containing this text")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the exclusion file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Paths.ExclusionsFile)
			return nil
		},
	}

	exclusionsCmd.AddCommand(countCmd, showCmd, pathCmd)
	return exclusionsCmd
}
