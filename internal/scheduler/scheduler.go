// Package scheduler runs the periodic full sync and mover log check on cron
// expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"moversync/internal/logging"
	"moversync/internal/moverlogs"
	"moversync/internal/operations"
	"moversync/internal/services"
)

// Job names.
const (
	JobFullSync   = "full_sync"
	JobLogMonitor = "log_monitor"
)

// Runner is the subset of operations the scheduler triggers.
type Runner interface {
	RunFullSync(ctx context.Context) operations.BuildResponse
	LatestMoverStats(ctx context.Context) *moverlogs.Stats
}

// Jobs holds the cron expression of each job. An empty expression disables
// that job.
type Jobs struct {
	FullSyncCron   string
	LogMonitorCron string
}

// Entry describes one scheduled job.
type Entry struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitzero"`
}

// Scheduler owns a cron instance. Ticks that arrive while the previous run of
// the same job is still going are skipped.
type Scheduler struct {
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	entries map[string]scheduled
}

type scheduled struct {
	id   cron.EntryID
	spec string
}

// New constructs an idle scheduler.
func New(runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		entries: make(map[string]scheduled),
	}
}

// Start registers jobs and starts the cron loop. Jobs run with contexts
// derived from ctx.
func (s *Scheduler) Start(ctx context.Context, jobs Jobs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	adapter := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	s.ctx = ctx
	s.cron = c
	if err := s.register(jobs); err != nil {
		s.cron = nil
		return err
	}
	c.Start()
	s.logger.Info("scheduler started",
		logging.String("full_sync_cron", jobs.FullSyncCron),
		logging.String("log_monitor_cron", jobs.LogMonitorCron),
	)
	return nil
}

// Reschedule replaces the job expressions of a running scheduler.
func (s *Scheduler) Reschedule(jobs Jobs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return fmt.Errorf("scheduler not started")
	}
	for name, entry := range s.entries {
		s.cron.Remove(entry.id)
		delete(s.entries, name)
	}
	return s.register(jobs)
}

// Stop halts the cron loop and waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

// Entries lists scheduled jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.entries))
	for name, sched := range s.entries {
		e := s.cron.Entry(sched.id)
		out = append(out, Entry{Name: name, Spec: sched.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) register(jobs Jobs) error {
	for _, job := range []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{JobFullSync, jobs.FullSyncCron, s.fullSync},
		{JobLogMonitor, jobs.LogMonitorCron, s.logMonitor},
	} {
		if job.spec == "" {
			continue
		}
		id, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run))
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.name, job.spec, err)
		}
		s.entries[job.name] = scheduled{id: id, spec: job.spec}
	}
	return nil
}

func (s *Scheduler) wrap(name string, run func(context.Context)) func() {
	return func() {
		s.mu.Lock()
		base := s.ctx
		s.mu.Unlock()
		if base == nil || base.Err() != nil {
			return
		}
		ctx := services.WithTrigger(base, services.TriggerSchedule)
		ctx, _ = services.EnsureRequestID(ctx)
		logger := logging.WithContext(ctx, s.logger)
		logger.Info("scheduled job started", logging.String("job", name))
		started := time.Now()
		run(ctx)
		logger.Info("scheduled job finished",
			logging.String("job", name),
			logging.Duration("duration", time.Since(started)),
		)
	}
}

func (s *Scheduler) fullSync(ctx context.Context) {
	resp := s.runner.RunFullSync(ctx)
	if !resp.OK() {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "scheduled sync failed", "scheduled_sync_failed",
			logging.String("message", resp.Message),
			logging.String(logging.FieldImpact, "exclusion file not updated until the next run"),
		)
	}
}

func (s *Scheduler) logMonitor(ctx context.Context) {
	stats := s.runner.LatestMoverStats(ctx)
	logger := logging.WithContext(ctx, s.logger)
	if stats == nil {
		logger.Info("no mover logs to report")
		return
	}
	logger.Info("mover log check",
		logging.String("file", stats.Filename),
		logging.String("kind", string(stats.Kind)),
		logging.Int("excluded", stats.Excluded),
		logging.Int("moved", stats.Moved),
		logging.Int("errors", stats.Errors),
		logging.Float64("efficiency", stats.Efficiency),
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{logging.Error(err)}, keysAndValues...)...)
}
