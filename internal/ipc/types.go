package ipc

import (
	"moversync/internal/daemon"
	"moversync/internal/exclusions"
	"moversync/internal/moverlogs"
	"moversync/internal/operations"
	"moversync/internal/preflight"
	"moversync/internal/settings"
	"moversync/internal/state"
)

// Wire types shared with the HTTP API.
type (
	BuildResponse    = operations.BuildResponse
	TagsResponse     = operations.TagsResponse
	LibraryResponse  = operations.LibraryResponse
	ConnectionStatus = operations.ConnectionStatus
	CheckResult      = preflight.Result
	Settings         = settings.Settings
	BuildRun         = state.BuildRun
	Summary          = exclusions.Summary
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse combines daemon runtime state with the dashboard summary.
type StatusResponse = daemon.StatusResponse

// BuildRequest triggers an exclusion build. Full refreshes manager tags and
// caches before building.
type BuildRequest struct {
	Full bool `json:"full"`
}

// ExclusionStatsRequest fetches the exclusion file summary.
type ExclusionStatsRequest struct{}

// ExclusionsRequest fetches the exclusion file entries.
type ExclusionsRequest struct{}

// ExclusionsResponse lists the entries of the exclusion file.
type ExclusionsResponse struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
}

// HistoryRequest fetches recent build runs. Zero limit uses the default.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse lists recent build runs, newest first.
type HistoryResponse struct {
	Runs []BuildRun `json:"runs"`
}

// MoverStatsRequest fetches the latest mover run. TrueRun skips dry runs.
type MoverStatsRequest struct {
	TrueRun bool `json:"true_run"`
}

// MoverStatsResponse wraps the latest mover statistics.
type MoverStatsResponse = daemon.MoverStatsResponse

// MoverLogsRequest lists the mover run files.
type MoverLogsRequest struct{}

// MoverLogsResponse lists paired mover run files, newest first.
type MoverLogsResponse struct {
	Files []moverlogs.FileSet `json:"files"`
}

// ConnectionsRequest checks every library manager.
type ConnectionsRequest struct{}

// ConnectionsResponse reports per-manager connectivity.
type ConnectionsResponse struct {
	Connections []ConnectionStatus `json:"connections"`
}

// TagsRequest lists a manager's tags.
type TagsRequest struct {
	Manager string `json:"manager"`
}

// SetTagsRequest replaces a manager's tag filter.
type SetTagsRequest struct {
	Manager string `json:"manager"`
	IDs     []int  `json:"ids"`
}

// LibraryRequest lists a manager's library filtered by title.
type LibraryRequest struct {
	Manager string `json:"manager"`
	Query   string `json:"query"`
}

// SettingsRequest fetches the effective settings.
type SettingsRequest struct{}

// UpdateSettingsRequest replaces the effective settings.
type UpdateSettingsRequest struct {
	Settings Settings `json:"settings"`
}

// ResetSettingsRequest drops every runtime override.
type ResetSettingsRequest struct{}

// FoldersRequest adds or removes manual exclusion folders.
type FoldersRequest struct {
	Folders []string `json:"folders"`
}

// CheckRequest runs the preflight checks.
type CheckRequest struct{}

// CheckResponse reports preflight results.
type CheckResponse struct {
	Results []CheckResult `json:"results"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Level      string `json:"level,omitempty"`
	Component  string `json:"component,omitempty"`
	Search     string `json:"search,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
