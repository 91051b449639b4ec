package exclusions

import (
	"context"

	"moversync/internal/media"
)

// Source names where a candidate path came from.
type Source string

const (
	SourceManual    Source = "manual"
	SourceCacheList Source = "cache_list"
	SourceRadarr    Source = "radarr"
	SourceSonarr    Source = "sonarr"
)

// Sources lists every source in build order.
var Sources = []Source{SourceManual, SourceCacheList, SourceRadarr, SourceSonarr}

// MovieSource lists movies from the movies manager.
type MovieSource interface {
	AllMovies(ctx context.Context) ([]media.Movie, error)
}

// ShowSource lists shows and their episode files from the shows manager.
type ShowSource interface {
	AllShows(ctx context.Context) ([]media.Show, error)
	EpisodeFiles(ctx context.Context, showID int) ([]media.EpisodeFile, error)
}

// Recorder is told about every completed build.
type Recorder interface {
	RecordBuild(ctx context.Context, result Result) error
}

// SourceError describes a source that contributed nothing because it failed.
type SourceError struct {
	Source  Source `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
