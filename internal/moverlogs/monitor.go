package moverlogs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"moversync/internal/logging"
)

// Monitor serves the latest mover statistics. Parsed files are cached by
// path, size, and modification time so unchanged runs are not re-read, and
// concurrent callers share one refresh.
type Monitor struct {
	dir    string
	naming Naming
	logger *slog.Logger

	cache *lru.Cache[string, Stats]
	group singleflight.Group

	mu       sync.Mutex
	observer func(Stats)
}

// NewMonitor builds a monitor over dir keeping up to cacheEntries parsed runs.
func NewMonitor(dir string, naming Naming, cacheEntries int, logger *slog.Logger) (*Monitor, error) {
	if cacheEntries <= 0 {
		cacheEntries = 32
	}
	cache, err := lru.New[string, Stats](cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("stats cache: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		dir:    dir,
		naming: naming,
		logger: logging.NewComponentLogger(logger, "mover_logs"),
		cache:  cache,
	}, nil
}

// Dir returns the watched log directory.
func (m *Monitor) Dir() string { return m.dir }

// OnParsed registers fn to receive every freshly parsed result. Cache hits do
// not trigger it.
func (m *Monitor) OnParsed(fn func(Stats)) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// Latest returns statistics for the most relevant run, or nil when no run
// exists or it could not be read. Errors are logged, never returned.
func (m *Monitor) Latest(ctx context.Context) *Stats {
	return m.load(ctx, "latest", Select)
}

// LatestTrueRun returns statistics for the newest true run, or nil.
func (m *Monitor) LatestTrueRun(ctx context.Context) *Stats {
	return m.load(ctx, "true_run", SelectTrueRun)
}

// Index lists the runs in the log directory, newest first. Errors are logged
// and yield an empty index.
func (m *Monitor) Index(ctx context.Context) []FileSet {
	sets, err := Index(m.dir, m.naming)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "mover log index failed", "mover_index_failed",
			logging.String("dir", m.dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mover_log_dir is readable"),
		)
		return nil
	}
	return sets
}

// Invalidate drops every cached result.
func (m *Monitor) Invalidate() {
	m.cache.Purge()
}

func (m *Monitor) load(ctx context.Context, key string, pick func(string, Naming) (*FileSet, error)) *Stats {
	v, _, _ := m.group.Do(key, func() (any, error) {
		return m.refresh(ctx, pick), nil
	})
	stats, _ := v.(*Stats)
	if stats == nil {
		return nil
	}
	out := *stats
	return &out
}

func (m *Monitor) refresh(ctx context.Context, pick func(string, Naming) (*FileSet, error)) *Stats {
	logger := logging.WithContext(ctx, m.logger)
	set, err := pick(m.dir, m.naming)
	if err != nil {
		logging.WarnWithContext(logger, "mover log selection failed", "mover_select_failed",
			logging.String("dir", m.dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mover_log_dir is readable"),
			logging.String(logging.FieldImpact, "mover statistics unavailable"),
		)
		return nil
	}
	if set == nil {
		logger.Debug("no mover logs found", logging.String("dir", m.dir))
		return nil
	}

	key := cacheKey(set.Primary())
	if cached, ok := m.cache.Get(key); ok {
		return &cached
	}

	stats, err := Parse(*set)
	if err != nil {
		logging.WarnWithContext(logger, "mover log parse failed", "mover_parse_failed",
			logging.String("file", set.Primary().Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mover statistics unavailable"),
		)
		return nil
	}
	m.cache.Add(key, *stats)
	logger.Info("parsed mover log",
		logging.String("file", stats.Filename),
		logging.String("mode", string(stats.Mode)),
		logging.String("kind", string(stats.Kind)),
		logging.Int("excluded", stats.Excluded),
		logging.Int("moved", stats.Moved),
		logging.Int("errors", stats.Errors),
		logging.String(logging.FieldEventType, "mover_stats_parsed"),
	)

	m.mu.Lock()
	observer := m.observer
	m.mu.Unlock()
	if observer != nil {
		observer(*stats)
	}
	return stats
}

func cacheKey(f *FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", f.Path, f.Size, f.ModTime.UnixNano())
}
