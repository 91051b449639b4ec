package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRewrite(); err != nil {
		return err
	}
	if err := validateManager("radarr", c.Radarr); err != nil {
		return err
	}
	if err := validateManager("sonarr", c.Sonarr); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateMoverLogs(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		parsed, err := url.Parse(topic)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", topic)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ExclusionsFile) == "" {
		return errors.New("paths.exclusions_file must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.CacheListFile != "" && c.Paths.CacheListFile == c.Paths.ExclusionsFile {
		return errors.New("paths.cache_list_file must differ from paths.exclusions_file")
	}
	return nil
}

func (c *Config) validateRewrite() error {
	for key, root := range map[string]string{
		"rewrite.media_root":  c.Rewrite.MediaRoot,
		"rewrite.movies_root": c.Rewrite.MoviesRoot,
		"rewrite.tv_root":     c.Rewrite.TVRoot,
	} {
		if !path.IsAbs(root) {
			return fmt.Errorf("%s must be an absolute path, got %q", key, root)
		}
	}
	for key, segment := range map[string]string{
		"rewrite.movie_segment": c.Rewrite.MovieSegment,
		"rewrite.tv_segment":    c.Rewrite.TVSegment,
	} {
		if len(segment) < 3 || !strings.HasPrefix(segment, "/") || !strings.HasSuffix(segment, "/") {
			return fmt.Errorf("%s must look like /name/, got %q", key, segment)
		}
	}
	for i, rule := range c.Rewrite.LegacyPrefixes {
		if !strings.HasPrefix(rule.Prefix, "/") {
			return fmt.Errorf("rewrite.legacy_prefixes[%d].prefix must start with /", i)
		}
		if !path.IsAbs(rule.Target) {
			return fmt.Errorf("rewrite.legacy_prefixes[%d].target must be an absolute path", i)
		}
	}
	return nil
}

func validateManager(section string, m Manager) error {
	if m.URL != "" {
		parsed, err := url.Parse(m.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s.url must be an absolute http(s) URL, got %q", section, m.URL)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s.url must use http or https", section)
		}
	}
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("%s.timeout_seconds must be positive", section)
	}
	if m.SearchTagID < 0 {
		return fmt.Errorf("%s.search_tag_id must be >= 0", section)
	}
	if m.RequestsPerSecond < 0 {
		return fmt.Errorf("%s.requests_per_second must be >= 0", section)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := cron.ParseStandard(c.Schedule.FullSyncCron); err != nil {
		return fmt.Errorf("schedule.full_sync_cron: %w", err)
	}
	if _, err := cron.ParseStandard(c.Schedule.LogMonitorCron); err != nil {
		return fmt.Errorf("schedule.log_monitor_cron: %w", err)
	}
	return nil
}

func (c *Config) validateMoverLogs() error {
	if c.MoverLogs.ListPrefix == c.MoverLogs.LogPrefix {
		return errors.New("mover_logs.list_prefix and mover_logs.log_prefix must differ")
	}
	return ensurePositiveMap(map[string]int{
		"mover_logs.true_run_threshold_bytes": int(c.MoverLogs.TrueRunThresholdBytes),
		"mover_logs.cache_entries":            c.MoverLogs.CacheEntries,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
