package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"moversync/internal/config"
)

func clearManagerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RADARR_URL", "RADARR_API_KEY", "SONARR_URL", "SONARR_API_KEY", "MOVERSYNC_API_TOKEN", "MOVERSYNC_NTFY_TOPIC"} {
		previous, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, previous)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsExpandPathsAndDeriveRoots(t *testing.T) {
	clearManagerEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "moversync", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "moversync") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.ExclusionsFile != "/config/mover_exclusions.txt" {
		t.Fatalf("unexpected exclusions file: %q", cfg.Paths.ExclusionsFile)
	}
	if cfg.Rewrite.MoviesRoot != "/mnt/chloe/data/media/movies" {
		t.Fatalf("unexpected movies root: %q", cfg.Rewrite.MoviesRoot)
	}
	if cfg.Rewrite.TVRoot != "/mnt/chloe/data/media/tv" {
		t.Fatalf("unexpected tv root: %q", cfg.Rewrite.TVRoot)
	}
	if len(cfg.Rewrite.LegacyPrefixes) != 1 || cfg.Rewrite.LegacyPrefixes[0].Prefix != "/chloe/" {
		t.Fatalf("unexpected legacy prefixes: %+v", cfg.Rewrite.LegacyPrefixes)
	}
	if cfg.MoverLogs.TrueRunThresholdBytes != 500 {
		t.Fatalf("unexpected threshold: %d", cfg.MoverLogs.TrueRunThresholdBytes)
	}
	if cfg.Radarr.Configured() || cfg.Sonarr.Configured() {
		t.Fatal("expected managers unconfigured by default")
	}
	if cfg.Schedule.LogMonitorCron != "30 23 * * *" {
		t.Fatalf("unexpected log monitor cron: %q", cfg.Schedule.LogMonitorCron)
	}
	if cfg.StatePath() != filepath.Join(cfg.Paths.StateDir, "state.db") {
		t.Fatalf("unexpected state path: %q", cfg.StatePath())
	}
}

func TestLoadMergesSearchTagAndEnvFallback(t *testing.T) {
	clearManagerEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SONARR_API_KEY", "sonarr-env-key")

	path := writeConfig(t, `
[radarr]
url = "http://radarr:7878/"
api_key = "radarr-key"
tag_ids = [3, 3, 0, 5]
search_tag_id = 9

[sonarr]
url = "http://sonarr:8989"
tag_ids = [2]
search_tag_id = 2

[rewrite]
media_root = "/mnt/pool/media/"
`)

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Radarr.URL != "http://radarr:7878" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Radarr.URL)
	}
	if !slices.Equal(cfg.Radarr.TagIDs, []int{3, 5, 9}) {
		t.Fatalf("unexpected radarr tags: %v", cfg.Radarr.TagIDs)
	}
	if !slices.Equal(cfg.Sonarr.TagIDs, []int{2}) {
		t.Fatalf("unexpected sonarr tags: %v", cfg.Sonarr.TagIDs)
	}
	if cfg.Sonarr.APIKey != "sonarr-env-key" {
		t.Fatalf("expected sonarr key from env, got %q", cfg.Sonarr.APIKey)
	}
	if !cfg.Sonarr.Configured() {
		t.Fatal("expected sonarr configured")
	}
	if cfg.Rewrite.MediaRoot != "/mnt/pool/media" {
		t.Fatalf("unexpected media root: %q", cfg.Rewrite.MediaRoot)
	}
	if cfg.Rewrite.MoviesRoot != "/mnt/pool/media/movies" {
		t.Fatalf("unexpected movies root: %q", cfg.Rewrite.MoviesRoot)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	clearManagerEnv(t)
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, "[radarr]\nurl = \"http://radarr:7878\"\n")
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte("RADARR_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Radarr.APIKey != "from-dotenv" {
		t.Fatalf("expected api key from .env, got %q", cfg.Radarr.APIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearManagerEnv(t)
	t.Setenv("HOME", t.TempDir())

	cases := map[string]struct {
		body string
		want string
	}{
		"cron": {
			body: "[schedule]\nfull_sync_cron = \"every day\"\n",
			want: "schedule.full_sync_cron",
		},
		"relative root": {
			body: "[rewrite]\nmovies_root = \"media/movies\"\n",
			want: "rewrite.movies_root",
		},
		"segment": {
			body: "[rewrite]\nmovie_segment = \"movies\"\n",
			want: "rewrite.movie_segment",
		},
		"manager url": {
			body: "[radarr]\nurl = \"radarr:7878\"\n",
			want: "radarr.url",
		},
		"ntfy topic": {
			body: "[notifications]\nntfy_topic = \"my-topic\"\n",
			want: "notifications.ntfy_topic",
		},
		"prefixes": {
			body: "[mover_logs]\nlist_prefix = \"Run\"\nlog_prefix = \"Run\"\n",
			want: "mover_logs.list_prefix",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	clearManagerEnv(t)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Sonarr.RequestsPerSecond != 10 {
		t.Fatalf("unexpected sonarr rate: %v", cfg.Sonarr.RequestsPerSecond)
	}
	if cfg.MoverLogs.ListPrefix != "Filtered_files" {
		t.Fatalf("unexpected list prefix: %q", cfg.MoverLogs.ListPrefix)
	}
}

func TestMergeTagIDs(t *testing.T) {
	if got := config.MergeTagIDs(nil, 0); len(got) != 0 {
		t.Fatalf("expected empty tags, got %v", got)
	}
	if got := config.MergeTagIDs([]int{1, 2}, 2); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("unexpected merge: %v", got)
	}
	if got := config.MergeTagIDs([]int{4}, 7); !slices.Equal(got, []int{4, 7}) {
		t.Fatalf("unexpected merge: %v", got)
	}
}
