package operations_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moversync/internal/config"
	"moversync/internal/exclusions"
	"moversync/internal/logging"
	"moversync/internal/media"
	"moversync/internal/moverlogs"
	"moversync/internal/operations"
	"moversync/internal/services"
	"moversync/internal/state"
	"moversync/internal/testsupport"
)

type fakeManager struct {
	name       string
	configured bool
	connErr    error
	tags       []media.Tag
	tagsErr    error
	movies     []media.Movie
	moviesErr  error
	shows      []media.Show
	episodes   map[int][]media.EpisodeFile
}

func (f *fakeManager) Name() string                                { return f.name }
func (f *fakeManager) Configured() bool                            { return f.configured }
func (f *fakeManager) TestConnection(context.Context) error        { return f.connErr }
func (f *fakeManager) AllTags(context.Context) ([]media.Tag, error) { return f.tags, f.tagsErr }
func (f *fakeManager) AllMovies(context.Context) ([]media.Movie, error) {
	return f.movies, f.moviesErr
}
func (f *fakeManager) AllShows(context.Context) ([]media.Show, error) { return f.shows, nil }
func (f *fakeManager) EpisodeFiles(_ context.Context, id int) ([]media.EpisodeFile, error) {
	return f.episodes[id], nil
}

type recordingObserver struct {
	builds      int
	syncs       int
	connections map[string]bool
	parsed      int
	summaries   []exclusions.Summary
}

func (o *recordingObserver) BuildFinished(exclusions.Result, error) { o.builds++ }
func (o *recordingObserver) SyncFinished(time.Time)                 { o.syncs++ }
func (o *recordingObserver) ConnectionChecked(m string, ok bool) {
	if o.connections == nil {
		o.connections = map[string]bool{}
	}
	o.connections[m] = ok
}
func (o *recordingObserver) MoverStatsParsed(moverlogs.Stats) { o.parsed++ }
func (o *recordingObserver) ExclusionSummary(s exclusions.Summary) {
	o.summaries = append(o.summaries, s)
}

type fixture struct {
	cfg      *config.Config
	store    *state.Store
	svc      *operations.Service
	radarr   *fakeManager
	sonarr   *fakeManager
	observer *recordingObserver
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	f := &fixture{
		cfg:      cfg,
		store:    store,
		radarr:   &fakeManager{name: "radarr"},
		sonarr:   &fakeManager{name: "sonarr"},
		observer: &recordingObserver{},
	}
	svc, err := operations.New(cfg, store, logging.NewNop(),
		operations.WithManagers(f.radarr, f.sonarr),
		operations.WithObserver(f.observer),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestRunExclusionBuildSingleManualFolder(t *testing.T) {
	f := newFixture(t, testsupport.WithCustomFolders("/shows/Keep"))
	ctx := services.WithTrigger(context.Background(), services.TriggerCLI)

	resp := f.svc.RunExclusionBuild(ctx)
	require.Equal(t, operations.StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, 1, resp.TotalCount)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 1, resp.Result.CandidateCount)
	assert.Equal(t, 0, resp.Result.SkippedCount)
	assert.Equal(t, []string{"/shows/Keep"}, testsupport.ReadLines(t, f.cfg.Paths.ExclusionsFile))

	runs, err := f.svc.BuildHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cli", runs[0].Trigger)
	assert.Equal(t, operations.StatusSuccess, runs[0].Status)

	snapshot, err := f.svc.Settings().Get(ctx)
	require.NoError(t, err)
	assert.False(t, snapshot.LastBuild.IsZero(), "last build stamped")
	assert.Equal(t, 1, f.observer.builds)
}

func TestRunExclusionBuildSurvivesRadarrFailure(t *testing.T) {
	f := newFixture(t, testsupport.WithCustomFolders("/a", "/b"))
	f.radarr.moviesErr = services.Wrap(services.ErrUnavailable, "radarr", "movies", "", errors.New("refused"))
	_, err := f.svc.SetTagFilter(context.Background(), operations.ManagerRadarr, []int{4})
	require.NoError(t, err)

	resp := f.svc.RunExclusionBuild(context.Background())
	assert.Equal(t, operations.StatusPartial, resp.Status)
	assert.True(t, resp.OK())
	assert.Contains(t, resp.Message, "unavailable: radarr")
	assert.Equal(t, []string{"/a", "/b"}, testsupport.ReadLines(t, f.cfg.Paths.ExclusionsFile))
}

func TestRunExclusionBuildWriteFailureIsError(t *testing.T) {
	f := newFixture(t, testsupport.WithCustomFolders("/a"))
	blocker := filepath.Join(testsupport.BaseDir(f.cfg), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))
	f.cfg.Paths.ExclusionsFile = filepath.Join(blocker, "out.txt")

	resp := f.svc.RunExclusionBuild(context.Background())
	assert.Equal(t, operations.StatusError, resp.Status)
	assert.False(t, resp.OK())

	runs, err := f.svc.BuildHistory(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, operations.StatusError, runs[0].Status)
}

func TestRunFullSyncRefreshesTagsAndStamps(t *testing.T) {
	f := newFixture(t, testsupport.WithCustomFolders("/keep"))
	f.radarr.configured = true
	f.radarr.tags = []media.Tag{{ID: 1, Label: "keep-cache"}}
	f.radarr.movies = []media.Movie{{ID: 1, HasFile: true, FilePath: "/data/movies/A/A.mkv", Tags: []int{1}}}
	f.sonarr.configured = true
	f.sonarr.connErr = services.Wrap(services.ErrTimeout, "sonarr", "status", "", nil)
	_, err := f.svc.SetTagFilter(context.Background(), operations.ManagerRadarr, []int{1})
	require.NoError(t, err)

	resp := f.svc.RunFullSync(context.Background())
	require.Equal(t, operations.StatusSuccess, resp.Status, resp.Message)
	assert.Contains(t, resp.Message, "Sync complete.")
	assert.Contains(t, resp.Message, "sonarr: timeout")
	assert.Equal(t, 2, resp.TotalCount)

	tags, _, err := f.store.Tags(context.Background(), "radarr")
	require.NoError(t, err)
	assert.Equal(t, f.radarr.tags, tags)

	markers, err := f.store.Markers(context.Background())
	require.NoError(t, err)
	assert.Contains(t, markers, state.MarkerLastSync)
	assert.Contains(t, markers, "last_sync_radarr")
	assert.NotContains(t, markers, "last_sync_sonarr")
	assert.Equal(t, map[string]bool{"radarr": true, "sonarr": false}, f.observer.connections)
	assert.Equal(t, 1, f.observer.syncs)
}

func TestExclusionStatsCountsLines(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, exclusions.Summary{}, f.svc.ExclusionStats(context.Background()))

	testsupport.WriteLines(t, f.cfg.Paths.ExclusionsFile, "/a/b.mkv", "/c", "/d")
	got := f.svc.ExclusionStats(context.Background())
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, 1, got.Files)
	assert.Equal(t, 2, got.Directories)
}

func TestLatestMoverStatsNilWithoutLogsAndSnapshotsParsedRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.Nil(t, f.svc.LatestMoverStats(ctx))

	testsupport.WriteLines(t, filepath.Join(f.cfg.Paths.MoverLogDir, "Filtered_files_20260301_233000.list"),
		"a|b|c|skipped|e|f|1024", "a|b|c|yes|e|f|512")
	stats := f.svc.LatestMoverStats(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 50.0, stats.Efficiency)
	assert.Equal(t, 1, f.observer.parsed)

	var saved moverlogs.Stats
	_, ok, err := f.store.LoadSnapshot(ctx, state.SnapshotMoverStats, &saved)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1024), saved.BytesKept)
}

func TestTestConnectionsReportsUnconfigured(t *testing.T) {
	f := newFixture(t)
	f.radarr.configured = true
	statuses := f.svc.TestConnections(context.Background())
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].OK)
	assert.False(t, statuses[1].Configured)
	assert.Equal(t, "config_missing", statuses[1].Kind)
}

func TestTagsFallsBackToCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.ReplaceTags(ctx, "sonarr", []media.Tag{{ID: 3, Label: "anime"}}, at))
	f.sonarr.tagsErr = services.Wrap(services.ErrUnavailable, "sonarr", "tags", "", nil)

	resp, err := f.svc.Tags(ctx, operations.ManagerSonarr)
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.Equal(t, []media.Tag{{ID: 3, Label: "anime"}}, resp.Tags)
	assert.True(t, resp.RefreshedAt.Equal(at))

	_, err = f.svc.Tags(ctx, "lidarr")
	assert.ErrorIs(t, err, operations.ErrUnknownManager)
}

func TestFolderEditsPersist(t *testing.T) {
	f := newFixture(t, testsupport.WithCustomFolders("/a"))
	ctx := context.Background()

	got, err := f.svc.AddFolders(ctx, "/b", "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, got.CustomFolders)

	got, err = f.svc.RemoveFolders(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"/b"}, got.CustomFolders)
}

func TestLibraryMarksExcludedAndResolvesLabels(t *testing.T) {
	f := newFixture(t)
	f.sonarr.tags = []media.Tag{{ID: 3, Label: "keep-cached"}}
	f.sonarr.shows = []media.Show{
		{ID: 1, Title: "The Expanse", Tags: []int{3}},
		{ID: 2, Title: "Severance", Tags: []int{9}},
		{ID: 3, Title: "Expanded Universe"},
	}
	_, err := f.svc.SetTagFilter(context.Background(), operations.ManagerSonarr, []int{3})
	require.NoError(t, err)

	resp, err := f.svc.Library(context.Background(), operations.ManagerSonarr, "expan")
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "The Expanse", resp.Items[0].Title)
	assert.True(t, resp.Items[0].Excluded)
	assert.Equal(t, []string{"keep-cached"}, resp.Items[0].Tags)
	assert.False(t, resp.Items[1].Excluded)

	_, err = f.svc.Library(context.Background(), "lidarr", "")
	assert.ErrorIs(t, err, operations.ErrUnknownManager)
}

func TestBuildBusyIsNotRecorded(t *testing.T) {
	f := newFixture(t, testsupport.WithCustomFolders("/a"))
	lock := flock.New(f.cfg.Paths.ExclusionsFile + ".lock")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.Paths.ExclusionsFile), 0o755))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = lock.Unlock() })

	resp := f.svc.RunExclusionBuild(context.Background())
	assert.Equal(t, operations.StatusError, resp.Status)
	assert.True(t, resp.Busy)

	runs, err := f.svc.BuildHistory(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestWithObserverFansOutToEveryObserver(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCustomFolders("/keep"))
	store := testsupport.MustOpenStore(t, cfg)
	first, second := &recordingObserver{}, &recordingObserver{}
	svc, err := operations.New(cfg, store, logging.NewNop(),
		operations.WithManagers(&fakeManager{name: "radarr"}, &fakeManager{name: "sonarr"}),
		operations.WithObserver(first),
		operations.WithObserver(nil),
		operations.WithObserver(second),
	)
	require.NoError(t, err)

	resp := svc.RunExclusionBuild(context.Background())
	require.True(t, resp.OK(), resp.Message)
	assert.Equal(t, 1, first.builds)
	assert.Equal(t, 1, second.builds)
}
