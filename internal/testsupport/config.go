package testsupport

import (
	"path/filepath"
	"testing"

	"moversync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Managers are left unconfigured and scheduling is disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ExclusionsFile = filepath.Join(base, "config", "mover_exclusions.txt")
	cfgVal.Paths.MoverLogDir = filepath.Join(base, "mover_logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Rewrite.MoviesRoot = cfgVal.Rewrite.MediaRoot + "/movies"
	cfgVal.Rewrite.TVRoot = cfgVal.Rewrite.MediaRoot + "/tv"
	cfgVal.Schedule.Enabled = false
	cfgVal.Schedule.WatchLogs = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRadarr points the Radarr section at url.
func WithRadarr(url string, tagIDs ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Radarr.URL = url
		b.cfg.Radarr.APIKey = "radarr-key"
		b.cfg.Radarr.TagIDs = tagIDs
	}
}

// WithSonarr points the Sonarr section at url.
func WithSonarr(url string, tagIDs ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sonarr.URL = url
		b.cfg.Sonarr.APIKey = "sonarr-key"
		b.cfg.Sonarr.TagIDs = tagIDs
		b.cfg.Sonarr.RequestsPerSecond = 0
	}
}

// WithCacheList sets the cache list file to a path under the temp dir.
func WithCacheList(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.CacheListFile = filepath.Join(b.baseDir, name)
	}
}

// WithCustomFolders sets the manual exclusion folders.
func WithCustomFolders(folders ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Exclusions.CustomFolders = folders
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
