package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected a single live handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	errHandler := slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError})

	logger := TeeLogger(slog.New(infoHandler), errHandler).With(String(FieldComponent, "test"))
	logger.Info("routine")
	logger.Error("broken")

	if strings.Count(infoBuf.String(), "\n") != 2 {
		t.Fatalf("expected both records in info handler, got %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "routine") || !strings.Contains(errBuf.String(), "broken") {
		t.Fatalf("unexpected error handler output %q", errBuf.String())
	}
	if !strings.Contains(errBuf.String(), `"component":"test"`) {
		t.Fatalf("expected attrs propagated, got %q", errBuf.String())
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info enabled through fanout")
	}
}
