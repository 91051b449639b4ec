package metrics

import (
	"context"
	"log/slog"
	"strings"
)

// LogHandler counts warning and error records. Combine it with the regular
// handler through logging.TeeLogger.
func (m *Metrics) LogHandler() slog.Handler {
	return logCounter{m: m}
}

type logCounter struct {
	m *Metrics
}

func (h logCounter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (h logCounter) Handle(_ context.Context, record slog.Record) error {
	h.m.logEventsTotal.WithLabelValues(strings.ToLower(record.Level.String())).Inc()
	return nil
}

func (h logCounter) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h logCounter) WithGroup(string) slog.Handler { return h }
