package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"moversync/internal/config"
	"moversync/internal/daemon"
	"moversync/internal/logging"
	"moversync/internal/metrics"
	"moversync/internal/operations"
	"moversync/internal/scheduler"
	"moversync/internal/settings"
	"moversync/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config, opts ...daemon.Option) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	m := metrics.New()
	ops, err := operations.New(cfg, store, logging.NewNop(), operations.WithObserver(m))
	if err != nil {
		t.Fatalf("operations.New: %v", err)
	}
	opts = append([]daemon.Option{daemon.WithMetrics(m)}, opts...)
	d, err := daemon.New(cfg, ops, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running || status.StartedAt.IsZero() {
		t.Fatalf("expected daemon to report running, got %+v", status)
	}
	if status.APIAddress == "" {
		t.Fatal("expected api address once started")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.APIAddress() != "" {
		t.Fatal("expected api listener closed after stop")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock conflict for second daemon")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected second daemon to start after first stopped: %v", err)
	}
}

func TestDaemonReschedulesOnCronChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Enabled = true
	d := newDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	jobs := d.Status().Jobs
	if len(jobs) != 2 {
		t.Fatalf("expected two scheduled jobs, got %+v", jobs)
	}

	_, err := d.UpdateSettings(context.Background(), func(s *settings.Settings) {
		s.FullSyncCron = "15 3 * * *"
		s.LogMonitorCron = ""
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	jobs = d.Status().Jobs
	if len(jobs) != 1 || jobs[0].Name != scheduler.JobFullSync || jobs[0].Spec != "15 3 * * *" {
		t.Fatalf("unexpected jobs after reschedule: %+v", jobs)
	}

	if _, err := d.ResetSettings(context.Background()); err != nil {
		t.Fatalf("ResetSettings: %v", err)
	}
	if jobs = d.Status().Jobs; len(jobs) != 2 {
		t.Fatalf("expected defaults restored, got %+v", jobs)
	}
}

func TestDaemonWatcherRefreshesStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.WatchLogs = true
	if err := os.MkdirAll(cfg.Paths.MoverLogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	d := newDaemon(t, cfg, daemon.WithWatchDebounce(50*time.Millisecond))

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !d.Status().Watching {
		if time.Now().After(deadline) {
			t.Fatal("watcher never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	testsupport.WriteLines(t, filepath.Join(cfg.Paths.MoverLogDir, "Filtered_files_2026-10-19T03:00:00.list"),
		"a|b|c|skipped|e|f|1024", "a|b|c|yes|e|f|512")

	deadline = time.Now().Add(5 * time.Second)
	for {
		if stats := d.Operations().LatestMoverStats(context.Background()); stats != nil && stats.Excluded+stats.Moved > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected stats after mover list appeared")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
