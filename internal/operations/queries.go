package operations

import (
	"context"
	"time"

	"moversync/internal/exclusions"
	"moversync/internal/logging"
	"moversync/internal/media"
	"moversync/internal/moverlogs"
	"moversync/internal/services"
	"moversync/internal/settings"
	"moversync/internal/state"
)

// ConnectionStatus is the result of one manager connectivity check.
type ConnectionStatus struct {
	Manager    string    `json:"manager"`
	Configured bool      `json:"configured"`
	OK         bool      `json:"ok"`
	Kind       string    `json:"kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// TagsResponse lists a manager's tags and which are selected for exclusion.
type TagsResponse struct {
	Manager     string      `json:"manager"`
	Tags        []media.Tag `json:"tags"`
	Selected    []int       `json:"selected"`
	FromCache   bool        `json:"from_cache"`
	RefreshedAt time.Time   `json:"refreshed_at,omitzero"`
	Error       string      `json:"error,omitempty"`
}

// Status is the dashboard summary.
type Status struct {
	Settings   settings.Settings    `json:"settings"`
	Exclusions exclusions.Summary   `json:"exclusions"`
	OutputPath string               `json:"output_path"`
	LastRun    *state.BuildRun      `json:"last_run,omitempty"`
	Mover      *moverlogs.Stats     `json:"mover,omitempty"`
	Markers    map[string]time.Time `json:"markers,omitempty"`
}

// ExclusionStats summarizes the current exclusion file and reports it to the
// observer. Read failures are logged and reported as zero.
func (s *Service) ExclusionStats(ctx context.Context) exclusions.Summary {
	summary, err := exclusions.Summarize(s.cfg.Paths.ExclusionsFile)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "read exclusion file failed", "exclusion_read_failed",
			logging.String("path", s.cfg.Paths.ExclusionsFile),
			logging.Error(err),
		)
		return exclusions.Summary{}
	}
	if s.observer != nil {
		s.observer.ExclusionSummary(summary)
	}
	return summary
}

// ExclusionEntries returns the lines of the current exclusion file.
func (s *Service) ExclusionEntries(ctx context.Context) ([]string, error) {
	return exclusions.ReadEntries(s.cfg.Paths.ExclusionsFile)
}

// LatestMoverStats returns statistics for the latest mover run or nil.
func (s *Service) LatestMoverStats(ctx context.Context) *moverlogs.Stats {
	return s.monitor.Latest(ctx)
}

// LatestTrueRunStats returns statistics for the newest run that moved data.
func (s *Service) LatestTrueRunStats(ctx context.Context) *moverlogs.Stats {
	return s.monitor.LatestTrueRun(ctx)
}

// MoverLogIndex lists mover runs newest first.
func (s *Service) MoverLogIndex(ctx context.Context) []moverlogs.FileSet {
	return s.monitor.Index(ctx)
}

// BuildHistory returns recent builds, newest first.
func (s *Service) BuildHistory(ctx context.Context, limit int) ([]state.BuildRun, error) {
	if s.state == nil {
		return nil, nil
	}
	return s.state.RecentBuilds(ctx, limit)
}

// TestConnections checks every manager. Unconfigured managers are reported
// without a request.
func (s *Service) TestConnections(ctx context.Context) []ConnectionStatus {
	out := make([]ConnectionStatus, 0, 2)
	for _, m := range s.managers() {
		status := ConnectionStatus{Manager: m.Name(), Configured: m.Configured(), CheckedAt: s.now()}
		if status.Configured {
			err := m.TestConnection(ctx)
			status.OK = err == nil
			if err != nil {
				status.Kind = services.Kind(err)
				status.Error = err.Error()
			}
			if s.observer != nil {
				s.observer.ConnectionChecked(m.Name(), status.OK)
			}
		} else {
			status.Kind = "config_missing"
		}
		out = append(out, status)
	}
	return out
}

// Tags lists the tags of manager. A failed live fetch falls back to the
// cached list from the last sync.
func (s *Service) Tags(ctx context.Context, manager string) (TagsResponse, error) {
	m, err := s.manager(manager)
	if err != nil {
		return TagsResponse{}, err
	}
	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		return TagsResponse{}, err
	}
	resp := TagsResponse{Manager: manager, Selected: snapshot.RadarrTagIDs}
	if manager == ManagerSonarr {
		resp.Selected = snapshot.SonarrTagIDs
	}

	tags, fetchErr := m.AllTags(ctx)
	if fetchErr == nil {
		resp.Tags = tags
		resp.RefreshedAt = s.now()
		if s.state != nil {
			if err := s.state.ReplaceTags(ctx, manager, tags, resp.RefreshedAt); err != nil {
				s.logger.Warn("cache tags failed", logging.String(logging.FieldManager, manager), logging.Error(err))
			}
		}
		return resp, nil
	}

	resp.Error = fetchErr.Error()
	resp.FromCache = true
	if s.state != nil {
		cached, refreshed, err := s.state.Tags(ctx, manager)
		if err != nil {
			return resp, err
		}
		resp.Tags = cached
		resp.RefreshedAt = refreshed
	}
	return resp, nil
}

// Status gathers the dashboard summary.
func (s *Service) Status(ctx context.Context) (Status, error) {
	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		return Status{}, err
	}
	status := Status{
		Settings:   snapshot,
		Exclusions: s.ExclusionStats(ctx),
		OutputPath: s.cfg.Paths.ExclusionsFile,
		Mover:      s.LatestMoverStats(ctx),
	}
	if s.state != nil {
		runs, err := s.state.RecentBuilds(ctx, 1)
		if err != nil {
			return status, err
		}
		if len(runs) > 0 {
			status.LastRun = &runs[0]
		}
		if status.Markers, err = s.state.Markers(ctx); err != nil {
			return status, err
		}
	}
	return status, nil
}
