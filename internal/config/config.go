package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations and the API bind address.
type Paths struct {
	ExclusionsFile string `toml:"exclusions_file"`
	CacheListFile  string `toml:"cache_list_file"`
	MoverLogDir    string `toml:"mover_log_dir"`
	StateDir       string `toml:"state_dir"`
	LogDir         string `toml:"log_dir"`
	APIBind        string `toml:"api_bind"`
	APIToken       string `toml:"api_token"`
}

// Rewrite contains the path rewrite table used to translate library-manager
// paths into the mover's on-disk form.
type Rewrite struct {
	MediaRoot      string          `toml:"media_root"`
	MoviesRoot     string          `toml:"movies_root"`
	TVRoot         string          `toml:"tv_root"`
	MovieSegment   string          `toml:"movie_segment"`
	TVSegment      string          `toml:"tv_segment"`
	LegacyPrefixes []PrefixRewrite `toml:"legacy_prefixes"`
}

// PrefixRewrite replaces a leading path prefix with a target.
type PrefixRewrite struct {
	Prefix string `toml:"prefix"`
	Target string `toml:"target"`
}

// Exclusions contains exclusion-list build settings.
type Exclusions struct {
	CustomFolders  []string `toml:"custom_folders"`
	ValidateOnDisk bool     `toml:"validate_on_disk"`
}

// Manager contains connection and tag settings for a Radarr or Sonarr instance.
type Manager struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TagIDs         []int  `toml:"tag_ids"`
	SearchTagID    int    `toml:"search_tag_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	// RequestsPerSecond throttles per-item lookups (Sonarr episode files).
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Schedule contains cron expressions for background jobs.
type Schedule struct {
	Enabled        bool   `toml:"enabled"`
	FullSyncCron   string `toml:"full_sync_cron"`
	LogMonitorCron string `toml:"log_monitor_cron"`
	WatchLogs      bool   `toml:"watch_logs"`
}

// MoverLogs describes how mover run files are named.
type MoverLogs struct {
	ListPrefix            string `toml:"list_prefix"`
	LogPrefix             string `toml:"log_prefix"`
	TrueRunThresholdBytes int64  `toml:"true_run_threshold_bytes"`
	CacheEntries          int    `toml:"cache_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains ntfy settings for build and connectivity alerts.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyPartial         bool   `toml:"notify_partial"`
}

// Config encapsulates all configuration values for moversync.
//
// Configuration sections by subsystem:
//   - Paths: exclusion file, cache list, mover logs, state and API bind
//   - Rewrite: library path to on-disk path translation
//   - Exclusions: manual folders and on-disk validation
//   - Radarr / Sonarr: manager connections and tag filters
//   - Schedule: cron expressions for sync and log monitoring
//   - MoverLogs: mover run file naming and classification
//   - Notifications: ntfy alerts for failed builds and lost managers
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Rewrite       Rewrite       `toml:"rewrite"`
	Exclusions    Exclusions    `toml:"exclusions"`
	Radarr        Manager       `toml:"radarr"`
	Sonarr        Manager       `toml:"sonarr"`
	Schedule      Schedule      `toml:"schedule"`
	MoverLogs     MoverLogs     `toml:"mover_logs"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	loadDotEnv(filepath.Dir(resolvedPath))

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files beside the config and in the working directory.
// Existing environment variables win.
func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append([]string{filepath.Join(configDir, ".env")}, candidates...)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("moversync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The exclusion file directory is created on a best-effort basis so the
// daemon can start while the mover's config share is unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.ExclusionsFile); strings.TrimSpace(dir) != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

// StatePath returns the SQLite database location.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "moversync.lock")
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "moversync.sock")
}

// CurrentLogPath returns the pointer to the active daemon run log.
func (c *Config) CurrentLogPath() string {
	return filepath.Join(c.Paths.LogDir, "moversync.log")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "moversync.pid")
}

// Timeout returns the HTTP timeout for manager requests.
func (m Manager) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return time.Duration(defaultManagerTimeoutSeconds) * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Timeout returns the ntfy request timeout.
func (n Notifications) Timeout() time.Duration {
	if n.RequestTimeoutSeconds <= 0 {
		return time.Duration(defaultNtfyTimeoutSeconds) * time.Second
	}
	return time.Duration(n.RequestTimeoutSeconds) * time.Second
}

// Configured reports whether both URL and API key are present.
func (m Manager) Configured() bool {
	return strings.TrimSpace(m.URL) != "" && strings.TrimSpace(m.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
