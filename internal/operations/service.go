// Package operations exposes the operational triggers shared by the HTTP API,
// IPC, the scheduler, and the CLI: exclusion builds, full syncs, exclusion
// and mover statistics, connectivity checks, and tag listings.
package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moversync/internal/config"
	"moversync/internal/exclusions"
	"moversync/internal/logging"
	"moversync/internal/media"
	"moversync/internal/moverlogs"
	"moversync/internal/services/radarr"
	"moversync/internal/services/sonarr"
	"moversync/internal/settings"
	"moversync/internal/state"
)

// Manager names.
const (
	ManagerRadarr = "radarr"
	ManagerSonarr = "sonarr"
)

const historyKeep = 200

// Manager is the connectivity and tag surface common to both managers.
type Manager interface {
	Name() string
	Configured() bool
	TestConnection(ctx context.Context) error
	AllTags(ctx context.Context) ([]media.Tag, error)
}

// MovieManager is the movies manager collaborator.
type MovieManager interface {
	Manager
	exclusions.MovieSource
}

// ShowManager is the shows manager collaborator.
type ShowManager interface {
	Manager
	exclusions.ShowSource
}

// Observer receives operation outcomes, typically for metrics.
type Observer interface {
	BuildFinished(result exclusions.Result, err error)
	SyncFinished(at time.Time)
	ConnectionChecked(manager string, ok bool)
	MoverStatsParsed(stats moverlogs.Stats)
	ExclusionSummary(summary exclusions.Summary)
}

// Service runs operations against one configuration and state database.
type Service struct {
	cfg      *config.Config
	state    *state.Store
	settings *settings.Store
	radarr   MovieManager
	sonarr   ShowManager
	builder  *exclusions.Builder
	monitor  *moverlogs.Monitor
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithManagers replaces the HTTP manager clients.
func WithManagers(movies MovieManager, shows ShowManager) Option {
	return func(s *Service) {
		if movies != nil {
			s.radarr = movies
		}
		if shows != nil {
			s.sonarr = shows
		}
	}
}

// WithObserver registers an outcome observer. Repeated calls fan out to
// every registered observer in order.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o == nil {
			return
		}
		if s.observer == nil {
			s.observer = o
			return
		}
		if chain, ok := s.observer.(observers); ok {
			s.observer = append(chain, o)
			return
		}
		s.observer = observers{s.observer, o}
	}
}

type observers []Observer

func (chain observers) BuildFinished(result exclusions.Result, err error) {
	for _, o := range chain {
		o.BuildFinished(result, err)
	}
}

func (chain observers) SyncFinished(at time.Time) {
	for _, o := range chain {
		o.SyncFinished(at)
	}
}

func (chain observers) ConnectionChecked(manager string, ok bool) {
	for _, o := range chain {
		o.ConnectionChecked(manager, ok)
	}
}

func (chain observers) MoverStatsParsed(stats moverlogs.Stats) {
	for _, o := range chain {
		o.MoverStatsParsed(stats)
	}
}

func (chain observers) ExclusionSummary(summary exclusions.Summary) {
	for _, o := range chain {
		o.ExclusionSummary(summary)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New wires a service. Manager clients default to HTTP clients built from cfg.
func New(cfg *config.Config, st *state.Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		cfg:      cfg,
		state:    st,
		settings: settings.NewStore(cfg, st),
		radarr:   radarr.NewFromConfig(cfg),
		sonarr:   sonarr.NewFromConfig(cfg),
		logger:   logging.NewComponentLogger(logger, "operations"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	monitor, err := moverlogs.NewMonitor(cfg.Paths.MoverLogDir, moverlogs.NamingFromConfig(cfg.MoverLogs),
		cfg.MoverLogs.CacheEntries, logger)
	if err != nil {
		return nil, err
	}
	monitor.OnParsed(s.storeMoverStats)
	s.monitor = monitor

	s.builder = exclusions.NewBuilder(s.radarr, s.sonarr, logger,
		exclusions.WithRecorder(buildRecorder{service: s}),
		exclusions.WithClock(func() time.Time { return s.now() }),
	)
	return s, nil
}

// Settings returns the settings store.
func (s *Service) Settings() *settings.Store { return s.settings }

// Monitor returns the mover log monitor.
func (s *Service) Monitor() *moverlogs.Monitor { return s.monitor }

// Config returns the loaded configuration.
func (s *Service) Config() *config.Config { return s.cfg }

func (s *Service) manager(name string) (Manager, error) {
	switch name {
	case ManagerRadarr:
		return s.radarr, nil
	case ManagerSonarr:
		return s.sonarr, nil
	default:
		return nil, fmt.Errorf("%w: unknown manager %q", ErrUnknownManager, name)
	}
}

func (s *Service) managers() []Manager {
	return []Manager{s.radarr, s.sonarr}
}

func (s *Service) storeMoverStats(stats moverlogs.Stats) {
	if s.observer != nil {
		s.observer.MoverStatsParsed(stats)
	}
	if s.state == nil {
		return
	}
	if err := s.state.SaveSnapshot(context.Background(), state.SnapshotMoverStats, stats, s.now()); err != nil {
		s.logger.Warn("save mover stats snapshot failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "snapshot_save_failed"),
		)
	}
}
