package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moversync/internal/exclusions"
	"moversync/internal/logging"
	"moversync/internal/media"
	"moversync/internal/services"
	"moversync/internal/settings"
	"moversync/internal/state"
)

// Build statuses reported to callers and stored in history.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// ErrUnknownManager is returned for manager names other than radarr and sonarr.
var ErrUnknownManager = errors.New("unknown manager")

// BuildResponse is the outcome of a build or sync.
type BuildResponse struct {
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	TotalCount int                `json:"total_count"`
	Result     *exclusions.Result `json:"result,omitempty"`

	// Busy is set when another build held the lock.
	Busy bool `json:"busy,omitempty"`
}

// OK reports whether the exclusion file was written.
func (r BuildResponse) OK() bool {
	return r.Status != StatusError
}

// RunExclusionBuild rebuilds the exclusion file from the current settings.
func (s *Service) RunExclusionBuild(ctx context.Context) BuildResponse {
	logger := logging.WithContext(ctx, s.logger)
	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		logging.ErrorWithContext(logger, "load settings failed", "settings_load_failed", logging.Error(err))
		return s.failed(ctx, fmt.Errorf("load settings: %w", err))
	}

	started := s.now()
	result, err := s.builder.Build(ctx, s.buildOptions(snapshot))
	if s.observer != nil {
		s.observer.BuildFinished(result, err)
	}
	if err != nil {
		if errors.Is(err, exclusions.ErrBuildInProgress) {
			resp := s.failed(ctx, err)
			resp.Busy = true
			return resp
		}
		s.recordFailure(ctx, err, started)
		return s.failed(ctx, err)
	}

	status := StatusSuccess
	message := fmt.Sprintf("Wrote %d exclusions (%d candidates, %d skipped)",
		result.TotalWritten, result.CandidateCount, result.SkippedCount)
	if len(result.SourceErrors) > 0 {
		status = StatusPartial
		names := make([]string, 0, len(result.SourceErrors))
		for _, se := range result.SourceErrors {
			names = append(names, string(se.Source))
		}
		message += "; unavailable: " + strings.Join(names, ", ")
	}
	s.ExclusionStats(ctx)
	return BuildResponse{Status: status, Message: message, TotalCount: result.TotalWritten, Result: &result}
}

// RunFullSync tests each configured manager, refreshes its tag cache, stamps
// the sync time, and rebuilds the exclusion file.
func (s *Service) RunFullSync(ctx context.Context) BuildResponse {
	logger := logging.WithContext(ctx, s.logger)
	var notes []string
	for _, m := range s.managers() {
		if !m.Configured() {
			continue
		}
		if err := s.refreshManager(ctx, m); err != nil {
			logging.WarnWithContext(logger, "manager sync failed; build continues", "manager_sync_failed",
				logging.String(logging.FieldManager, m.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the manager url and api_key"),
			)
			notes = append(notes, fmt.Sprintf("%s: %s", m.Name(), services.Kind(err)))
		}
	}

	syncedAt := s.now()
	if s.state != nil {
		if err := s.state.Mark(ctx, state.MarkerLastSync, syncedAt); err != nil {
			logger.Warn("record sync time failed", logging.Error(err))
		}
	}
	if s.observer != nil {
		s.observer.SyncFinished(syncedAt)
	}

	resp := s.RunExclusionBuild(ctx)
	resp.Message = "Sync complete. " + resp.Message
	if len(notes) > 0 {
		resp.Message += " (sync issues: " + strings.Join(notes, ", ") + ")"
	}
	logger.Info("full sync finished",
		logging.String("status", resp.Status),
		logging.Int("total_count", resp.TotalCount),
		logging.String(logging.FieldEventType, "full_sync_complete"),
	)
	return resp
}

func (s *Service) refreshManager(ctx context.Context, m Manager) error {
	err := m.TestConnection(ctx)
	if s.observer != nil {
		s.observer.ConnectionChecked(m.Name(), err == nil)
	}
	if err != nil {
		return err
	}
	tags, err := m.AllTags(ctx)
	if err != nil {
		return err
	}
	if s.state == nil {
		return nil
	}
	now := s.now()
	if err := s.state.ReplaceTags(ctx, m.Name(), tags, now); err != nil {
		return err
	}
	return s.state.Mark(ctx, state.ManagerMarker(m.Name()), now)
}

func (s *Service) buildOptions(snapshot settings.Settings) exclusions.Options {
	return exclusions.Options{
		OutputPath:     s.cfg.Paths.ExclusionsFile,
		CustomFolders:  snapshot.CustomFolders,
		CacheListFile:  snapshot.CacheListFile,
		MovieTags:      media.NewTagFilter(snapshot.RadarrTagIDs...),
		ShowTags:       media.NewTagFilter(snapshot.SonarrTagIDs...),
		ValidateOnDisk: snapshot.ValidateOnDisk,
		Rules:          s.settings.Rules(snapshot),
	}
}

func (s *Service) failed(ctx context.Context, err error) BuildResponse {
	return BuildResponse{
		Status:     StatusError,
		Message:    err.Error(),
		TotalCount: s.ExclusionStats(ctx).TotalCount,
	}
}

func (s *Service) recordFailure(ctx context.Context, err error, started time.Time) {
	if s.state == nil {
		return
	}
	trigger, _ := services.TriggerFromContext(ctx)
	run := state.BuildRun{
		Trigger:    trigger,
		Status:     StatusError,
		Message:    err.Error(),
		StartedAt:  started,
		FinishedAt: s.now(),
		OutputPath: s.cfg.Paths.ExclusionsFile,
	}
	if _, recErr := s.state.RecordBuild(ctx, run); recErr != nil {
		s.logger.Warn("record failed build", logging.Error(recErr))
	}
}

// buildRecorder persists successful builds and the last build marker.
type buildRecorder struct {
	service *Service
}

func (r buildRecorder) RecordBuild(ctx context.Context, result exclusions.Result) error {
	st := r.service.state
	if st == nil {
		return nil
	}
	trigger, _ := services.TriggerFromContext(ctx)
	status := StatusSuccess
	if len(result.SourceErrors) > 0 {
		status = StatusPartial
	}
	run := state.BuildRun{
		Trigger:        trigger,
		Status:         status,
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
		TotalWritten:   result.TotalWritten,
		CandidateCount: result.CandidateCount,
		SkippedCount:   result.SkippedCount,
		SourceErrors:   len(result.SourceErrors),
		OutputPath:     result.OutputPath,
	}
	if _, err := st.RecordBuild(ctx, run); err != nil {
		return err
	}
	if _, err := st.PruneBuilds(ctx, historyKeep); err != nil {
		return err
	}
	return st.Mark(ctx, state.MarkerLastBuild, result.FinishedAt)
}
