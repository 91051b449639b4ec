package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"moversync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrUnavailable, "radarr", "list movies", "request failed", base)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	for _, fragment := range []string{"radarr", "list movies", "request failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error string %q", fragment, err.Error())
		}
	}
}

func TestKindClassifiesMarkers(t *testing.T) {
	cases := map[string]error{
		"":               nil,
		"config_missing": services.Wrap(services.ErrConfiguration, "sonarr", "", "url not set", nil),
		"timeout":        fmt.Errorf("fetch: %w", context.DeadlineExceeded),
		"unavailable":    services.Wrap(services.ErrUnavailable, "sonarr", "status", "", nil),
		"error":          errors.New("plain"),
	}
	for want, err := range cases {
		if got := services.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}
