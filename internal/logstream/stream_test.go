package logstream_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moversync/internal/ipc"
	"moversync/internal/logs"
	"moversync/internal/logstream"
)

type fakeTail struct {
	requests []ipc.LogTailRequest
	lines    []string
}

func (f *fakeTail) LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
	f.requests = append(f.requests, req)
	return &ipc.LogTailResponse{Lines: f.lines, Offset: 42}, nil
}

type unavailableSource struct{ calls int }

func (u *unavailableSource) Name() string { return "api" }

func (u *unavailableSource) Fetch(context.Context, logstream.Request) (logs.TailResult, error) {
	u.calls++
	return logs.TailResult{}, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func collect(lines *[]string) func(string) {
	return func(line string) { *lines = append(*lines, line) }
}

func TestStreamFallsBackWhenAPIUnavailable(t *testing.T) {
	api := &unavailableSource{}
	tail := &fakeTail{lines: []string{"one", "two"}}
	filter := logs.Filter{Level: "warn"}

	var got []string
	printed, err := logstream.Stream(context.Background(), logstream.Options{Lines: 5}, collect(&got),
		api, logstream.IPCSource(tail, filter))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || strings.Join(got, ",") != "one,two" {
		t.Fatalf("unexpected lines %v (printed=%v)", got, printed)
	}
	if api.calls != 1 {
		t.Fatalf("expected one api attempt, got %d", api.calls)
	}
	if len(tail.requests) != 1 {
		t.Fatalf("expected one tail request, got %d", len(tail.requests))
	}
	req := tail.requests[0]
	if req.Offset != -1 || req.Limit != 5 || req.Level != "warn" || req.Follow {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestStreamReportsWhenNoSourceAnswers(t *testing.T) {
	_, err := logstream.Stream(context.Background(), logstream.Options{}, nil, &unavailableSource{})
	if !logs.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if _, err := logstream.Stream(context.Background(), logstream.Options{}, nil); !errors.Is(err, logs.ErrAPIUnavailable) {
		t.Fatalf("expected ErrAPIUnavailable without sources, got %v", err)
	}
}

func TestStreamFileSourceFiltersLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moversync.log")
	body := "2026-01-02T03:04:05Z INFO api: listening\n2026-01-02T03:04:06Z WARN radarr: slow response\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var got []string
	printed, err := logstream.Stream(context.Background(), logstream.Options{}, collect(&got),
		logstream.FileSource(path, logs.Filter{Component: "radarr"}))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || len(got) != 1 || !strings.Contains(got[0], "slow response") {
		t.Fatalf("unexpected lines %v", got)
	}
}

func TestStreamFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moversync.log")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	done := make(chan error, 1)
	go func() {
		_, err := logstream.Stream(ctx, logstream.Options{Follow: true}, func(line string) {
			got = append(got, line)
			cancel()
		}, logstream.FileSource(path, logs.Filter{}))
		done <- err
	}()
	if err := <-done; err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("unexpected lines %v", got)
	}
}
