package main

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"moversync/internal/opsaccess"
	"moversync/internal/settings"
)

var settingFlags = []string{"full-sync-cron", "log-monitor-cron", "movies-root", "tv-root", "cache-list", "validate-on-disk"}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change runtime settings stored in the state database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				snapshot, err := access.Settings(requestContext(cmd))
				if err != nil {
					return err
				}
				return printSettings(cmd, ctx, snapshot)
			})
		},
	}

	var (
		fullSyncCron   string
		logMonitorCron string
		moviesRoot     string
		tvRoot         string
		cacheList      string
		validateOnDisk bool
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Override individual settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !slices.ContainsFunc(settingFlags, flags.Changed) {
				return errors.New("no settings given; see --help")
			}
			return ctx.withSession(func(access opsaccess.Access) error {
				reqCtx := requestContext(cmd)
				snapshot, err := access.Settings(reqCtx)
				if err != nil {
					return err
				}
				if flags.Changed("full-sync-cron") {
					snapshot.FullSyncCron = fullSyncCron
				}
				if flags.Changed("log-monitor-cron") {
					snapshot.LogMonitorCron = logMonitorCron
				}
				if flags.Changed("movies-root") {
					snapshot.MoviesRoot = moviesRoot
				}
				if flags.Changed("tv-root") {
					snapshot.TVRoot = tvRoot
				}
				if flags.Changed("cache-list") {
					snapshot.CacheListFile = cacheList
				}
				if flags.Changed("validate-on-disk") {
					snapshot.ValidateOnDisk = validateOnDisk
				}
				saved, err := access.UpdateSettings(reqCtx, snapshot)
				if err != nil {
					return err
				}
				return printSettings(cmd, ctx, saved)
			})
		},
	}
	setCmd.Flags().StringVar(&fullSyncCron, "full-sync-cron", "", "Cron expression for the full sync; empty disables it")
	setCmd.Flags().StringVar(&logMonitorCron, "log-monitor-cron", "", "Cron expression for the mover stats refresh; empty disables it")
	setCmd.Flags().StringVar(&moviesRoot, "movies-root", "", "Absolute on-disk movies root")
	setCmd.Flags().StringVar(&tvRoot, "tv-root", "", "Absolute on-disk TV root")
	setCmd.Flags().StringVar(&cacheList, "cache-list", "", "Cache list file; empty disables it")
	setCmd.Flags().BoolVar(&validateOnDisk, "validate-on-disk", false, "Drop exclusion entries that do not exist on disk")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop runtime overrides and return to the configuration file values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(access opsaccess.Access) error {
				snapshot, err := access.ResetSettings(requestContext(cmd))
				if err != nil {
					return err
				}
				return printSettings(cmd, ctx, snapshot)
			})
		},
	}

	settingsCmd.AddCommand(setCmd, resetCmd)
	return settingsCmd
}

func printSettings(cmd *cobra.Command, ctx *commandContext, snapshot settings.Settings) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, snapshot)
	}
	renderSettings(cmd.OutOrStdout(), snapshot)
	return nil
}

func renderSettings(out io.Writer, s settings.Settings) {
	orNone := func(v string) string {
		if v == "" {
			return "(disabled)"
		}
		return v
	}
	fmt.Fprintln(out, renderValueLine("Movies root", s.MoviesRoot))
	fmt.Fprintln(out, renderValueLine("TV root", s.TVRoot))
	fmt.Fprintln(out, renderValueLine("Cache list", orNone(s.CacheListFile)))
	fmt.Fprintln(out, renderValueLine("Custom folders", formatCount(len(s.CustomFolders))))
	fmt.Fprintln(out, renderValueLine("Radarr tags", formatIDs(s.RadarrTagIDs)))
	fmt.Fprintln(out, renderValueLine("Sonarr tags", formatIDs(s.SonarrTagIDs)))
	fmt.Fprintln(out, renderValueLine("Full sync cron", orNone(s.FullSyncCron)))
	fmt.Fprintln(out, renderValueLine("Log monitor cron", orNone(s.LogMonitorCron)))
	fmt.Fprintln(out, renderValueLine("Validate on disk", yesNo(s.ValidateOnDisk)))
	fmt.Fprintln(out, renderValueLine("Last build", formatWhen(s.LastBuild)))
	fmt.Fprintln(out, renderValueLine("Last sync", formatWhen(s.LastSync)))
}
