package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moversync/internal/opsaccess"
	"moversync/internal/settings"
)

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage manually excluded folders",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List manually excluded folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				snapshot, err := access.Settings(requestContext(cmd))
				if err != nil {
					return err
				}
				return printFolders(cmd, ctx, snapshot, false)
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <folder>...",
		Short: "Exclude folders from the mover",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				snapshot, err := access.AddFolders(requestContext(cmd), args)
				if err != nil {
					return err
				}
				return printFolders(cmd, ctx, snapshot, true)
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove <folder>...",
		Aliases: []string{"rm"},
		Short:   "Stop excluding folders",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				snapshot, err := access.RemoveFolders(requestContext(cmd), args)
				if err != nil {
					return err
				}
				return printFolders(cmd, ctx, snapshot, true)
			})
		},
	}

	foldersCmd.AddCommand(listCmd, addCmd, removeCmd)
	return foldersCmd
}

func printFolders(cmd *cobra.Command, ctx *commandContext, snapshot settings.Settings, changed bool) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, snapshot.CustomFolders)
	}
	out := cmd.OutOrStdout()
	if len(snapshot.CustomFolders) == 0 {
		fmt.Fprintln(out, "No custom folders")
		return nil
	}
	for _, folder := range snapshot.CustomFolders {
		fmt.Fprintln(out, folder)
	}
	if changed {
		fmt.Fprintln(out, "Run `moversync build` to apply changes to the exclusion file.")
	}
	return nil
}
