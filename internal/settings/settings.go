// Package settings exposes the effective runtime settings: the static TOML
// configuration overlaid with values edited at runtime and persisted in the
// state database.
package settings

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"moversync/internal/config"
	"moversync/internal/pathrules"
	"moversync/internal/services"
	"moversync/internal/state"
)

const overridesKey = "settings"

// Settings is one immutable snapshot of the values operations run with.
type Settings struct {
	CustomFolders  []string  `json:"custom_folders"`
	CacheListFile  string    `json:"cache_list_file,omitempty"`
	MoviesRoot     string    `json:"movies_root"`
	TVRoot         string    `json:"tv_root"`
	RadarrTagIDs   []int     `json:"radarr_tag_ids"`
	SonarrTagIDs   []int     `json:"sonarr_tag_ids"`
	FullSyncCron   string    `json:"full_sync_cron"`
	LogMonitorCron string    `json:"log_monitor_cron"`
	ValidateOnDisk bool      `json:"validate_on_disk"`
	LastBuild      time.Time `json:"last_build,omitzero"`
	LastSync       time.Time `json:"last_sync,omitzero"`
}

// overrides is the persisted form. Nil fields fall back to the config file.
type overrides struct {
	CustomFolders  *[]string `json:"custom_folders,omitempty"`
	CacheListFile  *string   `json:"cache_list_file,omitempty"`
	MoviesRoot     *string   `json:"movies_root,omitempty"`
	TVRoot         *string   `json:"tv_root,omitempty"`
	RadarrTagIDs   *[]int    `json:"radarr_tag_ids,omitempty"`
	SonarrTagIDs   *[]int    `json:"sonarr_tag_ids,omitempty"`
	FullSyncCron   *string   `json:"full_sync_cron,omitempty"`
	LogMonitorCron *string   `json:"log_monitor_cron,omitempty"`
	ValidateOnDisk *bool     `json:"validate_on_disk,omitempty"`
}

// Store reads and writes settings.
type Store struct {
	cfg   *config.Config
	state *state.Store
}

// NewStore binds the config defaults to the state database.
func NewStore(cfg *config.Config, st *state.Store) *Store {
	return &Store{cfg: cfg, state: st}
}

// Defaults returns the settings implied by the configuration file alone.
func (s *Store) Defaults() Settings {
	return Settings{
		CustomFolders:  slices.Clone(s.cfg.Exclusions.CustomFolders),
		CacheListFile:  s.cfg.Paths.CacheListFile,
		MoviesRoot:     s.cfg.Rewrite.MoviesRoot,
		TVRoot:         s.cfg.Rewrite.TVRoot,
		RadarrTagIDs:   slices.Clone(s.cfg.Radarr.TagIDs),
		SonarrTagIDs:   slices.Clone(s.cfg.Sonarr.TagIDs),
		FullSyncCron:   s.cfg.Schedule.FullSyncCron,
		LogMonitorCron: s.cfg.Schedule.LogMonitorCron,
		ValidateOnDisk: s.cfg.Exclusions.ValidateOnDisk,
	}
}

// Get returns the effective settings including the last build and sync times.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	current := s.Defaults()
	if s.state == nil {
		return current, nil
	}

	var o overrides
	found, err := s.state.GetSetting(ctx, overridesKey, &o)
	if err != nil {
		return current, err
	}
	if found {
		current = o.apply(current)
		current.RadarrTagIDs = config.MergeTagIDs(current.RadarrTagIDs, s.cfg.Radarr.SearchTagID)
		current.SonarrTagIDs = config.MergeTagIDs(current.SonarrTagIDs, s.cfg.Sonarr.SearchTagID)
	}

	markers, err := s.state.Markers(ctx)
	if err != nil {
		return current, err
	}
	current.LastBuild = markers[state.MarkerLastBuild]
	current.LastSync = markers[state.MarkerLastSync]
	return current, nil
}

// Save validates next and persists every field that differs from the config
// file. Timestamps are owned by the operations layer and ignored here.
func (s *Store) Save(ctx context.Context, next Settings) error {
	if s.state == nil {
		return errors.New("settings store has no state database")
	}
	next = clean(next)
	if err := Validate(next); err != nil {
		return err
	}
	if err := s.Rules(next).Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "settings", "validate", "path rules", err)
	}
	o := diff(s.Defaults(), next)
	if o.empty() {
		return s.state.DeleteSetting(ctx, overridesKey)
	}
	return s.state.PutSetting(ctx, overridesKey, o)
}

// Reset drops every runtime override.
func (s *Store) Reset(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	return s.state.DeleteSetting(ctx, overridesKey)
}

// Rules returns the path rewrite table for snapshot, with its movie and tv
// roots replacing the configured ones.
func (s *Store) Rules(snapshot Settings) pathrules.Rules {
	rw := s.cfg.Rewrite
	if snapshot.MoviesRoot != "" {
		rw.MoviesRoot = snapshot.MoviesRoot
	}
	if snapshot.TVRoot != "" {
		rw.TVRoot = snapshot.TVRoot
	}
	return pathrules.FromConfig(rw)
}

// Validate checks a settings snapshot.
func Validate(s Settings) error {
	for _, root := range []struct{ name, value string }{
		{"movies_root", s.MoviesRoot},
		{"tv_root", s.TVRoot},
	} {
		if !strings.HasPrefix(root.value, "/") {
			return services.Wrap(services.ErrValidation, "settings", "validate",
				fmt.Sprintf("%s must be an absolute path", root.name), nil)
		}
	}
	if s.CacheListFile != "" && !strings.HasPrefix(s.CacheListFile, "/") {
		return services.Wrap(services.ErrValidation, "settings", "validate",
			"cache_list_file must be an absolute path", nil)
	}
	for _, expr := range []struct{ name, value string }{
		{"full_sync_cron", s.FullSyncCron},
		{"log_monitor_cron", s.LogMonitorCron},
	} {
		// Empty disables the job.
		if expr.value == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr.value); err != nil {
			return services.Wrap(services.ErrValidation, "settings", "validate",
				fmt.Sprintf("%s %q", expr.name, expr.value), err)
		}
	}
	return nil
}

func clean(s Settings) Settings {
	folders := make([]string, 0, len(s.CustomFolders))
	for _, folder := range s.CustomFolders {
		folder = strings.TrimSpace(folder)
		if folder == "" || slices.Contains(folders, folder) {
			continue
		}
		folders = append(folders, folder)
	}
	s.CustomFolders = folders
	s.CacheListFile = strings.TrimSpace(s.CacheListFile)
	s.MoviesRoot = cleanRoot(s.MoviesRoot)
	s.TVRoot = cleanRoot(s.TVRoot)
	s.RadarrTagIDs = config.MergeTagIDs(s.RadarrTagIDs, 0)
	s.SonarrTagIDs = config.MergeTagIDs(s.SonarrTagIDs, 0)
	s.FullSyncCron = strings.TrimSpace(s.FullSyncCron)
	s.LogMonitorCron = strings.TrimSpace(s.LogMonitorCron)
	return s
}

func cleanRoot(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	cleaned := path.Clean(value)
	if cleaned == "/" {
		return cleaned
	}
	return strings.TrimRight(cleaned, "/")
}

func diff(base, next Settings) overrides {
	var o overrides
	if !slices.Equal(base.CustomFolders, next.CustomFolders) {
		o.CustomFolders = &next.CustomFolders
	}
	if base.CacheListFile != next.CacheListFile {
		o.CacheListFile = &next.CacheListFile
	}
	if base.MoviesRoot != next.MoviesRoot {
		o.MoviesRoot = &next.MoviesRoot
	}
	if base.TVRoot != next.TVRoot {
		o.TVRoot = &next.TVRoot
	}
	if !slices.Equal(base.RadarrTagIDs, next.RadarrTagIDs) {
		o.RadarrTagIDs = &next.RadarrTagIDs
	}
	if !slices.Equal(base.SonarrTagIDs, next.SonarrTagIDs) {
		o.SonarrTagIDs = &next.SonarrTagIDs
	}
	if base.FullSyncCron != next.FullSyncCron {
		o.FullSyncCron = &next.FullSyncCron
	}
	if base.LogMonitorCron != next.LogMonitorCron {
		o.LogMonitorCron = &next.LogMonitorCron
	}
	if base.ValidateOnDisk != next.ValidateOnDisk {
		o.ValidateOnDisk = &next.ValidateOnDisk
	}
	return o
}

func (o overrides) empty() bool {
	return o == overrides{}
}

func (o overrides) apply(s Settings) Settings {
	if o.CustomFolders != nil {
		s.CustomFolders = slices.Clone(*o.CustomFolders)
	}
	if o.CacheListFile != nil {
		s.CacheListFile = *o.CacheListFile
	}
	if o.MoviesRoot != nil {
		s.MoviesRoot = *o.MoviesRoot
	}
	if o.TVRoot != nil {
		s.TVRoot = *o.TVRoot
	}
	if o.RadarrTagIDs != nil {
		s.RadarrTagIDs = slices.Clone(*o.RadarrTagIDs)
	}
	if o.SonarrTagIDs != nil {
		s.SonarrTagIDs = slices.Clone(*o.SonarrTagIDs)
	}
	if o.FullSyncCron != nil {
		s.FullSyncCron = *o.FullSyncCron
	}
	if o.LogMonitorCron != nil {
		s.LogMonitorCron = *o.LogMonitorCron
	}
	if o.ValidateOnDisk != nil {
		s.ValidateOnDisk = *o.ValidateOnDisk
	}
	return s
}
