package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moversync/internal/operations"
	"moversync/internal/opsaccess"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "List manager tags and choose which ones keep media on the cache",
	}

	listCmd := &cobra.Command{
		Use:       "list <radarr|sonarr>",
		Short:     "List a manager's tags",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{operations.ManagerRadarr, operations.ManagerSonarr},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				resp, err := access.Tags(requestContext(cmd), strings.ToLower(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				renderTags(cmd, resp)
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <radarr|sonarr> [tag-id...]",
		Short: "Replace a manager's tag filter; no ids clears it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			manager := strings.ToLower(args[0])
			return ctx.withSession(func(access opsaccess.Access) error {
				snapshot, err := access.SetTags(requestContext(cmd), manager, ids)
				if err != nil {
					return err
				}
				selected := snapshot.RadarrTagIDs
				if manager == operations.ManagerSonarr {
					selected = snapshot.SonarrTagIDs
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, selected)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s tag filter: %s\n", titleLabel(manager), formatIDs(selected))
				return nil
			})
		},
	}

	tagsCmd.AddCommand(listCmd, setCmd)
	return tagsCmd
}

func renderTags(cmd *cobra.Command, resp operations.TagsResponse) {
	out := cmd.OutOrStdout()
	if resp.FromCache {
		fmt.Fprintln(out, renderStatusLine(titleLabel(resp.Manager), statusWarn,
			fmt.Sprintf("unreachable (%s); showing tags cached %s", resp.Error, formatWhen(resp.RefreshedAt)), shouldColorize(out)))
	}
	if len(resp.Tags) == 0 {
		fmt.Fprintln(out, "No tags")
		return
	}
	rows := make([][]string, 0, len(resp.Tags))
	for _, tag := range resp.Tags {
		rows = append(rows, []string{strconv.Itoa(tag.ID), tag.Label, yesNo(slices.Contains(resp.Selected, tag.ID))})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Label", "Selected"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid tag id %q", part)
			}
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func formatIDs(ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
