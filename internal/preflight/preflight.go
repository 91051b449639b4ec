package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"moversync/internal/config"
	"moversync/internal/services/radarr"
	"moversync/internal/services/sonarr"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// Failed reports whether a required check did not pass.
func (r Result) Failed() bool {
	return !r.Passed && !r.Optional
}

// RunAll executes every applicable check for cfg. Managers default to the
// HTTP clients built from cfg.
func RunAll(ctx context.Context, cfg *config.Config, managers ...Pinger) []Result {
	if cfg == nil {
		return nil
	}
	if len(managers) == 0 {
		managers = []Pinger{radarr.NewFromConfig(cfg), sonarr.NewFromConfig(cfg)}
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Exclusion file directory", filepath.Dir(cfg.Paths.ExclusionsFile)),
	}
	if strings.TrimSpace(cfg.Paths.MoverLogDir) != "" {
		results = append(results, CheckReadableDirectory("Mover log directory", cfg.Paths.MoverLogDir))
	}
	if strings.TrimSpace(cfg.Paths.CacheListFile) != "" {
		results = append(results, CheckCacheList(cfg.Paths.CacheListFile))
	}
	if cfg.Exclusions.ValidateOnDisk {
		results = append(results,
			CheckReadableDirectory("Movies root", cfg.Rewrite.MoviesRoot),
			CheckReadableDirectory("TV root", cfg.Rewrite.TVRoot),
		)
	}
	for _, m := range managers {
		if m != nil {
			results = append(results, CheckManager(ctx, m))
		}
	}
	return results
}

// AnyFailed reports whether any required check failed.
func AnyFailed(results []Result) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}
