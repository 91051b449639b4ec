// Package logstream prints the daemon log from whichever source is reachable:
// the HTTP API, the IPC socket, or the log file itself.
package logstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moversync/internal/ipc"
	"moversync/internal/logs"
)

const (
	followWait   = 5 * time.Second
	followWaitMs = int(followWait / time.Millisecond)
)

// Request asks a source for one batch. A negative Offset means "the last
// Limit lines".
type Request struct {
	Offset int64
	Limit  int
	Follow bool
}

// Source fetches one batch of log lines.
type Source interface {
	Fetch(ctx context.Context, req Request) (logs.TailResult, error)
	Name() string
}

// TailClient captures the IPC log tail contract.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Options controls stream behavior.
type Options struct {
	Lines  int
	Follow bool
}

// Stream prints lines from the first source that answers. A source whose
// first fetch fails with logs.IsAPIUnavailable is skipped in favor of the
// next one. It returns true when at least one line was emitted.
func Stream(ctx context.Context, opts Options, onLine func(string), sources ...Source) (bool, error) {
	if len(sources) == 0 {
		return false, logs.ErrAPIUnavailable
	}
	var lastErr error
	for _, src := range sources {
		if src == nil {
			continue
		}
		printed, err := stream(ctx, src, opts, onLine)
		if err == nil || printed || !logs.IsAPIUnavailable(err) {
			return printed, err
		}
		lastErr = fmt.Errorf("%s: %w", src.Name(), err)
	}
	if lastErr == nil {
		lastErr = logs.ErrAPIUnavailable
	}
	return false, lastErr
}

func stream(ctx context.Context, src Source, opts Options, onLine func(string)) (bool, error) {
	limit := opts.Lines
	if limit == 0 {
		limit = logs.DefaultLimit
	}
	result, err := src.Fetch(ctx, Request{Offset: -1, Limit: limit})
	if err != nil {
		return false, err
	}
	printed := emit(result.Lines, onLine)
	if !opts.Follow {
		return printed, nil
	}

	offset := result.Offset
	for {
		result, err := src.Fetch(ctx, Request{Offset: offset, Follow: true})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return printed, nil
			}
			return printed, err
		}
		if emit(result.Lines, onLine) {
			printed = true
		}
		offset = result.Offset
		if ctx.Err() != nil {
			return printed, nil
		}
	}
}

func emit(lines []string, onLine func(string)) bool {
	for _, line := range lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return len(lines) > 0
}

// APISource reads through the daemon's HTTP API.
func APISource(client *logs.StreamClient, filter logs.Filter) Source {
	return apiSource{client: client, filter: filter}
}

type apiSource struct {
	client *logs.StreamClient
	filter logs.Filter
}

func (s apiSource) Name() string { return "api" }

func (s apiSource) Fetch(ctx context.Context, req Request) (logs.TailResult, error) {
	return s.client.Fetch(ctx, logs.StreamQuery{
		Offset:    req.Offset,
		Limit:     req.Limit,
		Follow:    req.Follow,
		Level:     s.filter.Level,
		Component: s.filter.Component,
		Search:    s.filter.Search,
	})
}

// IPCSource reads through the daemon's unix socket.
func IPCSource(client TailClient, filter logs.Filter) Source {
	return ipcSource{client: client, filter: filter}
}

type ipcSource struct {
	client TailClient
	filter logs.Filter
}

func (s ipcSource) Name() string { return "ipc" }

func (s ipcSource) Fetch(_ context.Context, req Request) (logs.TailResult, error) {
	tailReq := ipc.LogTailRequest{
		Offset:    req.Offset,
		Limit:     req.Limit,
		Follow:    req.Follow,
		Level:     s.filter.Level,
		Component: s.filter.Component,
		Search:    s.filter.Search,
	}
	if req.Follow {
		tailReq.WaitMillis = followWaitMs
	}
	resp, err := s.client.LogTail(tailReq)
	if err != nil {
		return logs.TailResult{}, fmt.Errorf("tail logs: %w", err)
	}
	if resp == nil {
		return logs.TailResult{}, errors.New("log tail response missing")
	}
	return logs.TailResult{Lines: resp.Lines, Offset: resp.Offset}, nil
}

// FileSource reads the log file directly.
func FileSource(path string, filter logs.Filter) Source {
	return fileSource{path: path, filter: filter}
}

type fileSource struct {
	path   string
	filter logs.Filter
}

func (s fileSource) Name() string { return "file" }

func (s fileSource) Fetch(ctx context.Context, req Request) (logs.TailResult, error) {
	opts := logs.TailOptions{Offset: req.Offset, Limit: req.Limit, Follow: req.Follow, Filter: s.filter}
	if req.Follow {
		opts.Wait = followWait
	}
	return logs.Tail(ctx, s.path, opts)
}
