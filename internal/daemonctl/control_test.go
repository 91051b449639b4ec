package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"moversync/internal/testsupport"
)

func TestReadPIDFallsBack(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pid")
	if pid, err := ReadPID(missing, 42); err != nil || pid != 42 {
		t.Fatalf("missing pid file: pid=%d err=%v", pid, err)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("nope\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if pid, err := ReadPID(garbage, 7); err != nil || pid != 7 {
		t.Fatalf("garbage pid file: pid=%d err=%v", pid, err)
	}

	valid := filepath.Join(dir, "valid.pid")
	if err := os.WriteFile(valid, []byte("1234\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if pid, err := ReadPID(valid, 7); err != nil || pid != 1234 {
		t.Fatalf("valid pid file: pid=%d err=%v", pid, err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	socket := filepath.Join(t.TempDir(), "absent.sock")
	if _, err := StopAndTerminate(socket, cfg, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if alive, pid, err := ProcessInfo(socket); alive || pid != 0 || err != nil {
		t.Fatalf("expected no daemon, got alive=%v pid=%d err=%v", alive, pid, err)
	}
}

func TestForceKillRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "self.pid")
	if _, err := ForceKillProcess(pidPath, os.Getpid()); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
