package settings_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moversync/internal/services"
	"moversync/internal/settings"
	"moversync/internal/state"
	"moversync/internal/testsupport"
)

func TestGetReturnsConfigDefaultsWithoutOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCustomFolders("/mnt/cache/keep"))
	cfg.Radarr.TagIDs = []int{3}
	store := settings.NewStore(cfg, testsupport.MustOpenStore(t, cfg))

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/cache/keep"}, got.CustomFolders)
	assert.Equal(t, []int{3}, got.RadarrTagIDs)
	assert.Equal(t, cfg.Rewrite.MoviesRoot, got.MoviesRoot)
	assert.True(t, got.LastBuild.IsZero())
}

func TestSaveOverlaysChangedFieldsOnly(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	cfg.Sonarr.SearchTagID = 9
	cfg.Sonarr.TagIDs = []int{9}
	st := testsupport.MustOpenStore(t, cfg)
	store := settings.NewStore(cfg, st)

	current, err := store.Get(ctx)
	require.NoError(t, err)
	current.CustomFolders = []string{" /b ", "/a", "/b", ""}
	current.SonarrTagIDs = []int{4}
	current.ValidateOnDisk = true
	require.NoError(t, store.Save(ctx, current))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/b", "/a"}, got.CustomFolders)
	assert.Equal(t, []int{4, 9}, got.SonarrTagIDs, "search tag stays a member of the filter")
	assert.True(t, got.ValidateOnDisk)
	assert.Equal(t, cfg.Schedule.FullSyncCron, got.FullSyncCron)

	cfg.Schedule.FullSyncCron = "15 * * * *"
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "15 * * * *", got.FullSyncCron, "unchanged fields follow the config file")
}

func TestSaveUnchangedClearsOverrides(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	store := settings.NewStore(cfg, st)

	next := store.Defaults()
	next.CustomFolders = []string{"/x"}
	require.NoError(t, store.Save(ctx, next))
	require.NoError(t, store.Save(ctx, store.Defaults()))

	var raw map[string]any
	found, err := st.GetSetting(ctx, "settings", &raw)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIncludesMarkers(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	at := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, st.Mark(ctx, state.MarkerLastBuild, at))
	require.NoError(t, st.Mark(ctx, state.MarkerLastSync, at.Add(-time.Minute)))

	got, err := settings.NewStore(cfg, st).Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.LastBuild.Equal(at))
	assert.True(t, got.LastSync.Equal(at.Add(-time.Minute)))
}

func TestSaveRejectsInvalidValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := settings.NewStore(cfg, testsupport.MustOpenStore(t, cfg))

	tests := map[string]func(*settings.Settings){
		"relative movies root": func(s *settings.Settings) { s.MoviesRoot = "movies" },
		"bad cron":             func(s *settings.Settings) { s.FullSyncCron = "every hour" },
		"relative cache list":  func(s *settings.Settings) { s.CacheListFile = "cache.txt" },
		"movies root at /":     func(s *settings.Settings) { s.MoviesRoot = "/" },
		"tv root at /":         func(s *settings.Settings) { s.TVRoot = "//" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			next := store.Defaults()
			mutate(&next)
			err := store.Save(context.Background(), next)
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrValidation))
		})
	}
}

func TestRulesUseSnapshotRoots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := settings.NewStore(cfg, nil)

	snapshot := store.Defaults()
	snapshot.MoviesRoot = "/mnt/user/films"
	rules := store.Rules(snapshot)
	assert.Equal(t, "/mnt/user/films/Alien (1979)/Alien.mkv", rules.Normalize("/data/Movies/Alien (1979)/Alien.mkv"))
}

func TestSettingsNeverCarryManagerCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Radarr.APIKey = "radarr-secret"
	cfg.Sonarr.APIKey = "sonarr-secret"
	store := settings.NewStore(cfg, testsupport.MustOpenStore(t, cfg))

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "radarr-secret")
	assert.NotContains(t, string(raw), "sonarr-secret")
	assert.NotContains(t, string(raw), "api_key")
}
