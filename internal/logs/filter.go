package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"moversync/internal/logging"
)

// Filter narrows tailed lines. Zero values match everything.
type Filter struct {
	Level     string
	Component string
	Search    string
}

// Empty reports whether the filter accepts every line.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.Level) == "" && strings.TrimSpace(f.Component) == "" && strings.TrimSpace(f.Search) == ""
}

// Match reports whether line passes the filter. Lines in either the console
// or JSON log format are understood; unparseable lines only match when no
// level or component constraint is set.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		if !strings.Contains(strings.ToLower(line), strings.ToLower(search)) {
			return false
		}
	}
	wantLevel := strings.TrimSpace(f.Level)
	wantComponent := strings.TrimSpace(f.Component)
	if wantLevel == "" && wantComponent == "" {
		return true
	}

	entry, ok := parseLine(line)
	if !ok {
		return false
	}
	if wantLevel != "" && entry.level < logging.ParseLevel(wantLevel) {
		return false
	}
	if wantComponent != "" && !strings.EqualFold(entry.component, wantComponent) {
		return false
	}
	return true
}

type lineEntry struct {
	level     slog.Level
	component string
}

func parseLine(line string) (lineEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var record struct {
			Level     string `json:"level"`
			Component string `json:"component"`
		}
		if err := json.Unmarshal([]byte(trimmed), &record); err != nil || record.Level == "" {
			return lineEntry{}, false
		}
		return lineEntry{level: logging.ParseLevel(record.Level), component: record.Component}, true
	}

	// "<rfc3339> LEVEL component: message k=v"
	fields := strings.SplitN(trimmed, " ", 4)
	if len(fields) < 3 {
		return lineEntry{}, false
	}
	var level slog.Level
	switch fields[1] {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		return lineEntry{}, false
	}
	entry := lineEntry{level: level}
	if component, ok := strings.CutSuffix(fields[2], ":"); ok {
		entry.component = component
	}
	return entry, true
}
