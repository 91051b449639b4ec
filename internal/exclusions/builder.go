// Package exclusions builds the mover exclusion file from manual folders, an
// external cache list, and tagged media in Radarr and Sonarr.
package exclusions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"moversync/internal/fileutil"
	"moversync/internal/logging"
	"moversync/internal/media"
	"moversync/internal/pathrules"
	"moversync/internal/services"
)

var (
	// ErrBuildInProgress is returned when another build holds the busy guard
	// or the output file lock.
	ErrBuildInProgress = errors.New("exclusion build already in progress")
	// ErrWriteFailed wraps failures to persist the exclusion file.
	ErrWriteFailed = errors.New("exclusion file write failed")
)

// Options is the per-build configuration snapshot.
type Options struct {
	OutputPath     string
	CustomFolders  []string
	CacheListFile  string
	MovieTags      media.TagFilter
	ShowTags       media.TagFilter
	ValidateOnDisk bool
	Rules          pathrules.Rules
}

// Result summarizes one build.
type Result struct {
	TotalWritten   int            `json:"total_written"`
	CandidateCount int            `json:"candidate_count"`
	SkippedCount   int            `json:"skipped_count"`
	PerSource      map[Source]int `json:"per_source"`
	SourceErrors   []SourceError  `json:"source_errors,omitempty"`
	OutputPath     string         `json:"output_path"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// Builder aggregates candidates and writes the exclusion file. A Builder runs
// at most one build at a time.
type Builder struct {
	movies   MovieSource
	shows    ShowSource
	recorder Recorder
	logger   *slog.Logger

	exists func(string) bool
	now    func() time.Time

	busy sync.Mutex
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithRecorder registers a recorder called after each successful build.
func WithRecorder(r Recorder) BuilderOption {
	return func(b *Builder) { b.recorder = r }
}

// WithExistsFunc replaces the on-disk existence check used in validation mode.
func WithExistsFunc(fn func(string) bool) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.exists = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder constructs a builder. movies and shows may be nil, in which case
// the matching source reports a configuration error when its filter is set.
func NewBuilder(movies MovieSource, shows ShowSource, logger *slog.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &Builder{
		movies: movies,
		shows:  shows,
		logger: logging.NewComponentLogger(logger, "exclusions"),
		exists: pathExists,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reconstructs the exclusion set from scratch and replaces the output
// file. Source failures are recorded in the result and never abort the build.
func (b *Builder) Build(ctx context.Context, opts Options) (Result, error) {
	if strings.TrimSpace(opts.OutputPath) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "exclusions", "build", "output path is not set", nil)
	}
	if !b.busy.TryLock() {
		return Result{}, ErrBuildInProgress
	}
	defer b.busy.Unlock()

	unlock, err := lockOutput(opts.OutputPath)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	logger := logging.WithContext(ctx, b.logger)
	result := Result{
		PerSource:  make(map[Source]int, len(Sources)),
		OutputPath: opts.OutputPath,
		StartedAt:  b.now(),
	}
	set := make(map[string]struct{})
	add := func(source Source, raw string) {
		normalized := opts.Rules.Normalize(raw)
		if normalized == "" {
			return
		}
		result.PerSource[source]++
		set[normalized] = struct{}{}
	}
	fail := func(source Source, err error) {
		result.SourceErrors = append(result.SourceErrors, SourceError{
			Source:  source,
			Kind:    services.Kind(err),
			Message: err.Error(),
		})
		logging.WarnWithContext(logger, "exclusion source unavailable; continuing without it", "source_unavailable",
			logging.String(logging.FieldSource, string(source)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(source, err)),
			logging.String(logging.FieldImpact, "paths from this source are not excluded this run"),
		)
	}

	for _, folder := range opts.CustomFolders {
		add(SourceManual, folder)
	}

	if opts.CacheListFile != "" {
		lines, err := readCacheList(opts.CacheListFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("cache list file not found",
				logging.String("path", opts.CacheListFile),
				logging.String(logging.FieldEventType, "cache_list_missing"),
			)
		case err != nil:
			fail(SourceCacheList, services.Wrap(services.ErrUnavailable, "cache list", "read", opts.CacheListFile, err))
		default:
			for _, line := range lines {
				add(SourceCacheList, line)
			}
		}
	}

	if !opts.MovieTags.Empty() {
		paths, err := b.moviePaths(ctx, opts.MovieTags)
		if err != nil {
			fail(SourceRadarr, err)
		}
		for _, p := range paths {
			add(SourceRadarr, p)
		}
	}

	if !opts.ShowTags.Empty() {
		paths, err := b.showPaths(ctx, logger, opts.ShowTags)
		if err != nil {
			fail(SourceSonarr, err)
		}
		for _, p := range paths {
			add(SourceSonarr, p)
		}
	}

	result.CandidateCount = len(set)
	entries := make([]string, 0, len(set))
	for p := range set {
		if opts.ValidateOnDisk && !b.exists(p) {
			result.SkippedCount++
			logger.Debug("exclusion candidate missing on disk", logging.String("path", p))
			continue
		}
		entries = append(entries, p)
	}
	slices.Sort(entries)

	if err := fileutil.WriteLines(opts.OutputPath, entries); err != nil {
		logging.ErrorWithContext(logger, "exclusion file write failed", "exclusion_write_failed",
			logging.String("path", opts.OutputPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the exclusions_file directory exists and is writable"),
			logging.String(logging.FieldImpact, "previous exclusion file left in place"),
		)
		return result, fmt.Errorf("%w: %s: %w", ErrWriteFailed, opts.OutputPath, err)
	}

	result.TotalWritten = len(entries)
	result.FinishedAt = b.now()
	logger.Info("exclusion build complete",
		logging.Int("total_written", result.TotalWritten),
		logging.Int("candidate_count", result.CandidateCount),
		logging.Int("skipped_count", result.SkippedCount),
		logging.Int("source_errors", len(result.SourceErrors)),
		logging.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
		logging.String(logging.FieldEventType, "exclusion_build_complete"),
	)

	if b.recorder != nil {
		if err := b.recorder.RecordBuild(ctx, result); err != nil {
			logger.Warn("record build failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "build_record_failed"),
			)
		}
	}
	return result, nil
}

func (b *Builder) moviePaths(ctx context.Context, filter media.TagFilter) ([]string, error) {
	if b.movies == nil {
		return nil, services.Wrap(services.ErrConfiguration, "radarr", "list movies", "client not configured", nil)
	}
	movies, err := b.movies.AllMovies(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, movie := range movies {
		if !filter.Matches(movie.Tags) {
			continue
		}
		if p, ok := movie.ExclusionPath(); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// showPaths collects episode files for tagged shows. A show whose episode
// listing fails or is empty contributes its folder instead.
func (b *Builder) showPaths(ctx context.Context, logger *slog.Logger, filter media.TagFilter) ([]string, error) {
	if b.shows == nil {
		return nil, services.Wrap(services.ErrConfiguration, "sonarr", "list shows", "client not configured", nil)
	}
	shows, err := b.shows.AllShows(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, show := range shows {
		if !filter.Matches(show.Tags) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		files, err := b.shows.EpisodeFiles(ctx, show.ID)
		if err != nil {
			logger.Warn("episode files unavailable; excluding show folder",
				logging.String("show", show.Title),
				logging.Int("series_id", show.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "episode_files_unavailable"),
			)
		}
		added := 0
		for _, file := range files {
			if strings.TrimSpace(file.Path) != "" {
				paths = append(paths, file.Path)
				added++
			}
		}
		if added == 0 && strings.TrimSpace(show.Path) != "" {
			paths = append(paths, show.Path)
		}
	}
	return paths, nil
}

// readCacheList returns the cache list entries, skipping blank and comment
// lines. A read error discards everything read so far.
func readCacheList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	err = fileutil.ScanLines(f, func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		lines = append(lines, line)
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func lockOutput(outputPath string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %w", ErrWriteFailed, err)
	}
	lock := flock.New(outputPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire build lock: %w", ErrWriteFailed, err)
	}
	if !ok {
		return nil, ErrBuildInProgress
	}
	return func() { _ = lock.Unlock() }, nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func hintFor(source Source, err error) string {
	if errors.Is(err, services.ErrConfiguration) {
		return fmt.Sprintf("set the %s url and api_key", source)
	}
	switch source {
	case SourceCacheList:
		return "check cache_list_file permissions"
	default:
		return fmt.Sprintf("check %s is reachable", source)
	}
}
