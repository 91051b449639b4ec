package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"moversync/internal/config"
	"moversync/internal/logging"
	"moversync/internal/metrics"
	"moversync/internal/moverlogs"
	"moversync/internal/operations"
	"moversync/internal/scheduler"
	"moversync/internal/services"
	"moversync/internal/settings"
)

const stopTimeout = 30 * time.Second

// Daemon owns the background jobs and the HTTP API of one moversync process.
type Daemon struct {
	cfg       *config.Config
	ops       *operations.Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
	scheduler *scheduler.Scheduler
	api       *apiServer
	logPath   string
	debounce  time.Duration

	lockPath string
	lock     *flock.Flock

	// mu serializes Start and Stop; stateMu guards the fields read by
	// request handlers while Stop drains them.
	mu        sync.Mutex
	stateMu   sync.Mutex
	running   atomic.Bool
	watching  atomic.Bool
	scheduled bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool              `json:"running"`
	PID          int               `json:"pid"`
	StartedAt    time.Time         `json:"started_at,omitzero"`
	LockFilePath string            `json:"lock_path"`
	StatePath    string            `json:"state_path"`
	LogPath      string            `json:"log_path"`
	APIAddress   string            `json:"api_address,omitempty"`
	Watching     bool              `json:"watching"`
	Jobs         []scheduler.Entry `json:"jobs,omitempty"`
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Daemon) { d.metrics = m }
}

// WithLogPath sets the application log served by the log endpoints.
func WithLogPath(path string) Option {
	return func(d *Daemon) { d.logPath = path }
}

// WithWatchDebounce overrides the mover log watcher debounce.
func WithWatchDebounce(debounce time.Duration) Option {
	return func(d *Daemon) { d.debounce = debounce }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, ops *operations.Service, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || ops == nil {
		return nil, errors.New("daemon requires config and operations service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		ops:      ops,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		logPath:  cfg.CurrentLogPath(),
		debounce: moverlogs.DefaultDebounce,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scheduler = scheduler.New(ops, logger)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then starts the scheduler, the mover log
// watcher and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another moversync daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return err
	}

	if d.cfg.Schedule.Enabled {
		if err := d.startScheduler(d.ctx); err != nil {
			logging.WarnWithContext(d.logger, "scheduler start failed", "scheduler_start_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check full_sync_cron and log_monitor_cron"),
				logging.String(logging.FieldImpact, "scheduled syncs disabled until settings are fixed"),
			)
		}
	}
	if d.cfg.Schedule.WatchLogs {
		d.wg.Add(1)
		go d.watchMoverLogs(d.ctx)
	}

	d.stateMu.Lock()
	d.startedAt = time.Now()
	scheduled := d.scheduled
	d.stateMu.Unlock()
	d.running.Store(true)
	d.primeMetrics(d.ctx)
	d.logger.Info("moversync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Bool("schedule", scheduled),
		logging.Bool("watch_logs", d.cfg.Schedule.WatchLogs),
	)
	return nil
}

// Stop halts background jobs and the API, then releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	d.stateMu.Lock()
	scheduled := d.scheduled
	d.scheduled = false
	d.stateMu.Unlock()
	if scheduled {
		d.scheduler.Stop(stopCtx)
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("moversync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Operations returns the operations service driven by the daemon.
func (d *Daemon) Operations() *operations.Service {
	return d.ops
}

// Metrics returns the metrics registry, or nil when disabled.
func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the bound API address once started.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.stateMu.Lock()
	startedAt := d.startedAt
	d.stateMu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		StatePath:    d.cfg.StatePath(),
		LogPath:      d.logPath,
		APIAddress:   d.api.address(),
		Watching:     d.watching.Load(),
		Jobs:         d.scheduler.Entries(),
	}
	if status.Running {
		status.StartedAt = startedAt
	}
	return status
}

// UpdateSettings saves a settings change and re-arms the scheduler when the
// cron expressions moved.
func (d *Daemon) UpdateSettings(ctx context.Context, mutate func(*settings.Settings)) (settings.Settings, error) {
	before, err := d.ops.Settings().Get(ctx)
	if err != nil {
		return before, err
	}
	after, err := d.ops.UpdateSettings(ctx, mutate)
	if err != nil {
		return after, err
	}
	if before.FullSyncCron != after.FullSyncCron || before.LogMonitorCron != after.LogMonitorCron {
		d.reschedule(ctx, after)
	}
	return after, nil
}

// ResetSettings drops every runtime override.
func (d *Daemon) ResetSettings(ctx context.Context) (settings.Settings, error) {
	if err := d.ops.Settings().Reset(ctx); err != nil {
		return settings.Settings{}, err
	}
	snapshot, err := d.ops.Settings().Get(ctx)
	if err != nil {
		return snapshot, err
	}
	d.reschedule(ctx, snapshot)
	return snapshot, nil
}

func (d *Daemon) startScheduler(ctx context.Context) error {
	snapshot, err := d.ops.Settings().Get(ctx)
	if err != nil {
		return err
	}
	if err := d.scheduler.Start(ctx, jobsFrom(snapshot)); err != nil {
		return err
	}
	d.stateMu.Lock()
	d.scheduled = true
	d.stateMu.Unlock()
	return nil
}

func (d *Daemon) reschedule(ctx context.Context, snapshot settings.Settings) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if !d.scheduled {
		return
	}
	if err := d.scheduler.Reschedule(jobsFrom(snapshot)); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "reschedule failed", "scheduler_reschedule_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "scheduled jobs may not run until settings are fixed"),
		)
		return
	}
	d.logger.Info("scheduler updated",
		logging.String("full_sync_cron", snapshot.FullSyncCron),
		logging.String("log_monitor_cron", snapshot.LogMonitorCron),
	)
}

func jobsFrom(snapshot settings.Settings) scheduler.Jobs {
	return scheduler.Jobs{FullSyncCron: snapshot.FullSyncCron, LogMonitorCron: snapshot.LogMonitorCron}
}

// watchMoverLogs refreshes mover statistics whenever run files change.
func (d *Daemon) watchMoverLogs(ctx context.Context) {
	defer d.wg.Done()
	monitor := d.ops.Monitor()
	d.watching.Store(true)
	defer d.watching.Store(false)

	err := moverlogs.Watch(ctx, monitor.Dir(), d.debounce, d.logger, func() {
		refreshCtx := services.WithTrigger(ctx, services.TriggerWatcher)
		refreshCtx, _ = services.EnsureRequestID(refreshCtx)
		monitor.Invalidate()
		if stats := d.ops.LatestMoverStats(refreshCtx); stats != nil {
			logging.WithContext(refreshCtx, d.logger).Info("mover stats refreshed",
				logging.String("file", stats.Filename),
				logging.String("kind", string(stats.Kind)),
			)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(d.logger, "mover log watcher stopped", "mover_watch_failed",
			logging.String("dir", monitor.Dir()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mover_log_dir exists and is readable"),
			logging.String(logging.FieldImpact, "mover stats refresh only on request or schedule"),
		)
	}
}

// primeMetrics publishes the current exclusion and mover state so gauges are
// populated before the first build.
func (d *Daemon) primeMetrics(ctx context.Context) {
	if d.metrics == nil {
		return
	}
	d.ops.ExclusionStats(ctx)
	d.ops.LatestMoverStats(ctx)
}
