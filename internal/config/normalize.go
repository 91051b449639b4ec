package config

import (
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRewrite()
	c.normalizeExclusions()
	c.Radarr = normalizeManager(c.Radarr, "RADARR")
	c.Sonarr = normalizeManager(c.Sonarr, "SONARR")
	if c.Sonarr.RequestsPerSecond <= 0 {
		c.Sonarr.RequestsPerSecond = defaultSonarrRequestsPerSec
	}
	c.normalizeSchedule()
	c.normalizeMoverLogs()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ExclusionsFile) == "" {
		c.Paths.ExclusionsFile = defaultExclusionsFile
	}
	if c.Paths.ExclusionsFile, err = expandPath(strings.TrimSpace(c.Paths.ExclusionsFile)); err != nil {
		return fmt.Errorf("paths.exclusions_file: %w", err)
	}
	if c.Paths.CacheListFile, err = expandPath(strings.TrimSpace(c.Paths.CacheListFile)); err != nil {
		return fmt.Errorf("paths.cache_list_file: %w", err)
	}
	if c.Paths.MoverLogDir, err = expandPath(strings.TrimSpace(c.Paths.MoverLogDir)); err != nil {
		return fmt.Errorf("paths.mover_log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MOVERSYNC_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

// Rewrite roots are paths on the mover's host, not this one, so they are
// cleaned but never made absolute against the local working directory.
func (c *Config) normalizeRewrite() {
	c.Rewrite.MediaRoot = cleanRoot(c.Rewrite.MediaRoot)
	if c.Rewrite.MediaRoot == "" {
		c.Rewrite.MediaRoot = defaultMediaRoot
	}
	c.Rewrite.MoviesRoot = cleanRoot(c.Rewrite.MoviesRoot)
	if c.Rewrite.MoviesRoot == "" {
		c.Rewrite.MoviesRoot = path.Join(c.Rewrite.MediaRoot, "movies")
	}
	c.Rewrite.TVRoot = cleanRoot(c.Rewrite.TVRoot)
	if c.Rewrite.TVRoot == "" {
		c.Rewrite.TVRoot = path.Join(c.Rewrite.MediaRoot, "tv")
	}
	c.Rewrite.MovieSegment = strings.TrimSpace(c.Rewrite.MovieSegment)
	if c.Rewrite.MovieSegment == "" {
		c.Rewrite.MovieSegment = defaultMovieSegment
	}
	c.Rewrite.TVSegment = strings.TrimSpace(c.Rewrite.TVSegment)
	if c.Rewrite.TVSegment == "" {
		c.Rewrite.TVSegment = defaultTVSegment
	}
	prefixes := make([]PrefixRewrite, 0, len(c.Rewrite.LegacyPrefixes))
	for _, rule := range c.Rewrite.LegacyPrefixes {
		rule.Prefix = strings.TrimSpace(rule.Prefix)
		rule.Target = strings.TrimSpace(rule.Target)
		if rule.Prefix == "" {
			continue
		}
		prefixes = append(prefixes, rule)
	}
	c.Rewrite.LegacyPrefixes = prefixes
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

func (c *Config) normalizeExclusions() {
	folders := make([]string, 0, len(c.Exclusions.CustomFolders))
	for _, folder := range c.Exclusions.CustomFolders {
		folder = strings.TrimSpace(folder)
		if folder == "" || slices.Contains(folders, folder) {
			continue
		}
		folders = append(folders, folder)
	}
	c.Exclusions.CustomFolders = folders
}

func normalizeManager(m Manager, envPrefix string) Manager {
	m.URL = strings.TrimRight(strings.TrimSpace(m.URL), "/")
	if m.URL == "" {
		if value, ok := os.LookupEnv(envPrefix + "_URL"); ok {
			m.URL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	m.APIKey = strings.TrimSpace(m.APIKey)
	if m.APIKey == "" {
		if value, ok := os.LookupEnv(envPrefix + "_API_KEY"); ok {
			m.APIKey = strings.TrimSpace(value)
		}
	}
	if m.TimeoutSeconds <= 0 {
		m.TimeoutSeconds = defaultManagerTimeoutSeconds
	}
	m.TagIDs = MergeTagIDs(m.TagIDs, m.SearchTagID)
	return m
}

// MergeTagIDs returns the deduplicated tag list with the search tag appended
// when it is set and missing.
func MergeTagIDs(ids []int, searchTagID int) []int {
	merged := make([]int, 0, len(ids)+1)
	for _, id := range ids {
		if id <= 0 || slices.Contains(merged, id) {
			continue
		}
		merged = append(merged, id)
	}
	if searchTagID > 0 && !slices.Contains(merged, searchTagID) {
		merged = append(merged, searchTagID)
	}
	return merged
}

func (c *Config) normalizeSchedule() {
	c.Schedule.FullSyncCron = strings.TrimSpace(c.Schedule.FullSyncCron)
	if c.Schedule.FullSyncCron == "" {
		c.Schedule.FullSyncCron = defaultFullSyncCron
	}
	c.Schedule.LogMonitorCron = strings.TrimSpace(c.Schedule.LogMonitorCron)
	if c.Schedule.LogMonitorCron == "" {
		c.Schedule.LogMonitorCron = defaultLogMonitorCron
	}
}

func (c *Config) normalizeMoverLogs() {
	c.MoverLogs.ListPrefix = strings.TrimSuffix(strings.TrimSpace(c.MoverLogs.ListPrefix), "_")
	if c.MoverLogs.ListPrefix == "" {
		c.MoverLogs.ListPrefix = defaultListPrefix
	}
	c.MoverLogs.LogPrefix = strings.TrimSuffix(strings.TrimSpace(c.MoverLogs.LogPrefix), "_")
	if c.MoverLogs.LogPrefix == "" {
		c.MoverLogs.LogPrefix = defaultLogPrefix
	}
	if c.MoverLogs.TrueRunThresholdBytes <= 0 {
		c.MoverLogs.TrueRunThresholdBytes = defaultTrueRunThresholdBytes
	}
	if c.MoverLogs.CacheEntries <= 0 {
		c.MoverLogs.CacheEntries = defaultMoverStatsCacheEntries
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("MOVERSYNC_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
