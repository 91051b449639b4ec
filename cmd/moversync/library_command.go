package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moversync/internal/operations"
	"moversync/internal/opsaccess"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	var excludedOnly bool
	cmd := &cobra.Command{
		Use:       "library <radarr|sonarr> [title]",
		Short:     "Search a manager's library and show which items stay on the cache",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{operations.ManagerRadarr, operations.ManagerSonarr},
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 1 {
				query = args[1]
			}
			return ctx.withSession(func(access opsaccess.Access) error {
				resp, err := access.Library(requestContext(cmd), strings.ToLower(args[0]), query)
				if err != nil {
					return err
				}
				if excludedOnly {
					kept := resp.Items[:0]
					for _, item := range resp.Items {
						if item.Excluded {
							kept = append(kept, item)
						}
					}
					resp.Items = kept
					resp.Total = len(kept)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "No matching items")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					year := ""
					if item.Year > 0 {
						year = strconv.Itoa(item.Year)
					}
					rows = append(rows, []string{item.Title, year, strings.Join(item.Tags, ", "), yesNo(item.Excluded)})
				}
				fmt.Fprintln(out, renderTable([]string{"Title", "Year", "Tags", "On Cache"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}))
				fmt.Fprintf(out, "%s items\n", formatCount(resp.Total))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&excludedOnly, "excluded", false, "Only show items kept on the cache")
	return cmd
}
