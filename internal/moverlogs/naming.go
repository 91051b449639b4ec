// Package moverlogs selects and parses the run files written by the mover
// tuning plugin: a pipe-delimited list of every file considered and a
// free-text log.
package moverlogs

import (
	"path/filepath"
	"strings"
	"time"

	"moversync/internal/config"
)

const (
	listExt = ".list"
	logExt  = ".log"
)

// RunKind classifies a mover run.
type RunKind string

const (
	KindTrueRun   RunKind = "true_run"
	KindIdleCheck RunKind = "idle_check"
)

// Naming describes how run files are named: {Prefix}_{timestamp}.{list|log}.
type Naming struct {
	ListPrefix     string
	LogPrefix      string
	ThresholdBytes int64
}

// DefaultNaming matches the mover tuning plugin defaults.
func DefaultNaming() Naming {
	return Naming{ListPrefix: "Filtered_files", LogPrefix: "Mover_tuning", ThresholdBytes: 500}
}

// NamingFromConfig reads the [mover_logs] section.
func NamingFromConfig(cfg config.MoverLogs) Naming {
	n := Naming{
		ListPrefix:     cfg.ListPrefix,
		LogPrefix:      cfg.LogPrefix,
		ThresholdBytes: cfg.TrueRunThresholdBytes,
	}
	def := DefaultNaming()
	if n.ListPrefix == "" {
		n.ListPrefix = def.ListPrefix
	}
	if n.LogPrefix == "" {
		n.LogPrefix = def.LogPrefix
	}
	if n.ThresholdBytes <= 0 {
		n.ThresholdBytes = def.ThresholdBytes
	}
	return n
}

// classify reports a true run when size exceeds the threshold.
func (n Naming) classify(size int64) RunKind {
	if size > n.ThresholdBytes {
		return KindTrueRun
	}
	return KindIdleCheck
}

// FileInfo is one run file on disk.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func (f *FileInfo) newerThan(other *FileInfo) bool {
	if other == nil {
		return true
	}
	if f.ModTime.Equal(other.ModTime) {
		return f.Name > other.Name
	}
	return f.ModTime.After(other.ModTime)
}

// FileSet pairs a list file and a log file from the same run. Either side may
// be missing.
type FileSet struct {
	List  *FileInfo `json:"list,omitempty"`
	Log   *FileInfo `json:"log,omitempty"`
	Stamp string    `json:"stamp"`
	Kind  RunKind   `json:"kind"`
}

// Primary returns the file Parse reads: the list when present.
func (s FileSet) Primary() *FileInfo {
	if s.List != nil {
		return s.List
	}
	return s.Log
}

// ModTime returns the newest modification time in the set.
func (s FileSet) ModTime() time.Time {
	var newest time.Time
	for _, f := range []*FileInfo{s.List, s.Log} {
		if f != nil && f.ModTime.After(newest) {
			newest = f.ModTime
		}
	}
	return newest
}

// stampOf returns the timestamp fragment of name given prefix, or false when
// name does not carry the prefix.
func stampOf(name, prefix string) (string, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if prefix == "" || !strings.HasPrefix(base, prefix+"_") {
		return "", false
	}
	return strings.TrimPrefix(base, prefix+"_"), true
}

var stampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15-04-05",
	"2006-01-02_15-04-05",
	"2006-01-02_15:04:05",
	"20060102_150405",
	"20060102T150405",
	"2006-01-02",
}

// parseStamp interprets a timestamp fragment in local time.
func parseStamp(stamp string) (time.Time, bool) {
	for _, layout := range stampLayouts {
		if t, err := time.ParseInLocation(layout, stamp, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
