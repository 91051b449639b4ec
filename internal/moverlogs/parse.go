package moverlogs

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"moversync/internal/fileutil"
)

// Mode is the parsing mode used for a file.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeHeuristic  Mode = "heuristic"
)

const (
	statusField = 3
	sizeField   = 6
	minFields   = 4
)

var (
	excludedKeywords = []string{"skipping", "not moving", "ignoring", "exclusion"}
	errorKeywords    = []string{"error", "failed"}
)

// Stats are the counts derived from one mover run file.
type Stats struct {
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Mode       Mode      `json:"mode"`
	Kind       RunKind   `json:"kind"`
	Stamp      string    `json:"stamp,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Excluded   int       `json:"excluded"`
	Moved      int       `json:"moved"`
	Errors     int       `json:"errors"`
	BytesKept  int64     `json:"bytes_kept"`
	Efficiency float64   `json:"efficiency"`
}

// Counts are the raw line classification totals.
type Counts struct {
	Excluded  int
	Moved     int
	Errors    int
	BytesKept int64
}

// Efficiency returns the excluded share of excluded plus moved as a
// percentage rounded to one decimal, or 0 when both are zero.
func (c Counts) Efficiency() float64 {
	total := c.Excluded + c.Moved
	if total == 0 {
		return 0
	}
	return math.Round(float64(c.Excluded)/float64(total)*1000) / 10
}

// Parse reads the primary file of set: the structured list when present,
// otherwise the free-text log.
func Parse(set FileSet) (*Stats, error) {
	primary := set.Primary()
	if primary == nil {
		return nil, errors.New("file set is empty")
	}
	mode := ModeHeuristic
	if set.List != nil {
		mode = ModeStructured
	}

	f, err := os.Open(primary.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", primary.Name, err)
	}
	defer f.Close()

	counts, err := ParseReader(f, mode)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", primary.Name, err)
	}

	timestamp := primary.ModTime
	if t, ok := parseStamp(set.Stamp); ok {
		timestamp = t
	}
	return &Stats{
		Filename:   primary.Name,
		Path:       primary.Path,
		Mode:       mode,
		Kind:       set.Kind,
		Stamp:      set.Stamp,
		Timestamp:  timestamp,
		Excluded:   counts.Excluded,
		Moved:      counts.Moved,
		Errors:     counts.Errors,
		BytesKept:  counts.BytesKept,
		Efficiency: counts.Efficiency(),
	}, nil
}

// ParseReader classifies every line of r using mode.
func ParseReader(r io.Reader, mode Mode) (Counts, error) {
	var c Counts
	classify := c.heuristicLine
	if mode == ModeStructured {
		classify = c.structuredLine
	}
	err := fileutil.ScanLines(r, func(line string) { classify(line) })
	return c, err
}

// structuredLine handles path|...|...|status|...|...|size lines.
func (c *Counts) structuredLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	fields := strings.Split(line, "|")
	if len(fields) < minFields {
		return
	}
	switch strings.ToLower(strings.TrimSpace(fields[statusField])) {
	case "skipped":
		c.Excluded++
		if len(fields) > sizeField {
			if size, err := strconv.ParseInt(strings.TrimSpace(fields[sizeField]), 10, 64); err == nil && size > 0 {
				c.BytesKept += size
			}
		}
	case "yes":
		c.Moved++
	}
}

func (c *Counts) heuristicLine(line string) {
	lowered := strings.ToLower(strings.TrimSpace(line))
	if lowered == "" || strings.HasPrefix(lowered, "---") {
		return
	}
	switch {
	case containsAny(lowered, excludedKeywords):
		c.Excluded++
	case strings.Contains(lowered, "moving") && !strings.Contains(lowered, "skipping"):
		c.Moved++
	case containsAny(lowered, errorKeywords):
		c.Errors++
	}
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
