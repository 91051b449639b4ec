package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"moversync/internal/config"
	"moversync/internal/exclusions"
	"moversync/internal/logging"
	"moversync/internal/logs"
	"moversync/internal/moverlogs"
	"moversync/internal/operations"
	"moversync/internal/preflight"
	"moversync/internal/services"
	"moversync/internal/settings"
)

const (
	maxBodyBytes    = 1 << 20
	maxFollowWait   = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Daemon     Status            `json:"daemon"`
	Operations operations.Status `json:"operations"`
}

// MoverStatsResponse wraps the latest mover statistics; Stats is null when no
// run has been logged yet.
type MoverStatsResponse struct {
	Stats *moverlogs.Stats `json:"stats"`
}

// FoldersRequest lists manual exclusion folders to add or remove.
type FoldersRequest struct {
	Folders []string `json:"folders"`
}

// TagFilterRequest replaces a manager's tag filter.
type TagFilterRequest struct {
	IDs []int `json:"ids"`
}

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	return &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  cfg.Paths.APIToken,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/check", s.handleCheck)
	mux.HandleFunc("POST /api/exclusions/build", s.handleBuild)
	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("GET /api/exclusions", s.handleExclusionFile)
	mux.HandleFunc("GET /api/exclusions/stats", s.handleExclusionStats)
	mux.HandleFunc("GET /api/exclusions/history", s.handleHistory)
	mux.HandleFunc("GET /api/mover/stats", s.handleMoverStats)
	mux.HandleFunc("GET /api/mover/logs", s.handleMoverLogs)
	mux.HandleFunc("GET /api/connections", s.handleConnections)
	mux.HandleFunc("GET /api/tags/{manager}", s.handleTags)
	mux.HandleFunc("PUT /api/tags/{manager}", s.handleSetTags)
	mux.HandleFunc("GET /api/library/{manager}", s.handleLibrary)
	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)
	mux.HandleFunc("DELETE /api/settings", s.handleResetSettings)
	mux.HandleFunc("POST /api/folders", s.handleAddFolders)
	mux.HandleFunc("DELETE /api/folders", s.handleRemoveFolders)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/logs/download", s.handleLogDownload)
	mux.HandleFunc("POST /api/logs/clear", s.handleLogClear)
	if m := s.daemon.Metrics(); m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	return requestIDMiddleware(authMiddleware(s.token, mux))
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Builds and syncs can outlast a short write timeout.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) ops() *operations.Service {
	return s.daemon.Operations()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	opsStatus, err := s.ops().Status(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{Daemon: s.daemon.Status(), Operations: opsStatus})
}

func (s *apiServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	results := preflight.RunAll(r.Context(), s.daemon.cfg)
	status := http.StatusOK
	if preflight.AnyFailed(results) {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, results)
}

func (s *apiServer) handleBuild(w http.ResponseWriter, r *http.Request) {
	s.writeBuild(w, s.ops().RunExclusionBuild(r.Context()))
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	s.writeBuild(w, s.ops().RunFullSync(r.Context()))
}

func (s *apiServer) writeBuild(w http.ResponseWriter, resp operations.BuildResponse) {
	status := http.StatusOK
	switch {
	case resp.Busy:
		status = http.StatusConflict
	case !resp.OK():
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleExclusionFile(w http.ResponseWriter, r *http.Request) {
	path := s.daemon.cfg.Paths.ExclusionsFile
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "exclusion file has not been built yet")
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Has("download") {
		w.Header().Set("Content-Disposition", `attachment; filename="mover_exclusions.txt"`)
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleExclusionStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ops().ExclusionStats(r.Context()))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.ops().BuildHistory(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *apiServer) handleMoverStats(w http.ResponseWriter, r *http.Request) {
	var stats *moverlogs.Stats
	if r.URL.Query().Get("kind") == string(moverlogs.KindTrueRun) {
		stats = s.ops().LatestTrueRunStats(r.Context())
	} else {
		stats = s.ops().LatestMoverStats(r.Context())
	}
	s.writeJSON(w, http.StatusOK, MoverStatsResponse{Stats: stats})
}

func (s *apiServer) handleMoverLogs(w http.ResponseWriter, r *http.Request) {
	index := s.ops().MoverLogIndex(r.Context())
	if index == nil {
		index = []moverlogs.FileSet{}
	}
	s.writeJSON(w, http.StatusOK, index)
}

func (s *apiServer) handleConnections(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ops().TestConnections(r.Context()))
}

func (s *apiServer) handleTags(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ops().Tags(r.Context(), r.PathValue("manager"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSetTags(w http.ResponseWriter, r *http.Request) {
	var req TagFilterRequest
	if !s.decode(w, r, &req) {
		return
	}
	snapshot, err := s.ops().SetTagFilter(r.Context(), r.PathValue("manager"), req.IDs)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *apiServer) handleLibrary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ops().Library(r.Context(), r.PathValue("manager"), r.URL.Query().Get("q"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ops().Settings().Get(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleSaveSettings merges the request body over the current settings, so
// clients may send only the fields they change.
func (s *apiServer) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.ops().Settings().Get(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !s.decode(w, r, &current) {
		return
	}
	snapshot, err := s.daemon.UpdateSettings(r.Context(), func(cur *settings.Settings) { *cur = current })
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *apiServer) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.daemon.ResetSettings(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *apiServer) handleAddFolders(w http.ResponseWriter, r *http.Request) {
	var req FoldersRequest
	if !s.decode(w, r, &req) {
		return
	}
	snapshot, err := s.ops().AddFolders(r.Context(), req.Folders...)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *apiServer) handleRemoveFolders(w http.ResponseWriter, r *http.Request) {
	var req FoldersRequest
	if !s.decode(w, r, &req) {
		return
	}
	snapshot, err := s.ops().RemoveFolders(r.Context(), req.Folders...)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	offset := int64(-1)
	if value := strings.TrimSpace(query.Get("offset")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = parsed
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	opts := logs.TailOptions{
		Offset: offset,
		Limit:  limit,
		Follow: follow,
		Filter: logs.Filter{
			Level:     query.Get("level"),
			Component: query.Get("component"),
			Search:    query.Get("search"),
		},
	}
	if follow {
		opts.Wait = maxFollowWait
	}
	result, err := logs.Tail(r.Context(), s.daemon.LogPath(), opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.writeFailure(w, r, err)
		return
	}
	if result.Lines == nil {
		result.Lines = []string{}
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleLogDownload(w http.ResponseWriter, r *http.Request) {
	path := s.daemon.LogPath()
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, "log file not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="moversync.log"`)
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleLogClear(w http.ResponseWriter, r *http.Request) {
	if err := logs.Clear(s.daemon.LogPath()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("application log cleared",
		logging.String(logging.FieldEventType, "log_cleared"))
	s.writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeFailure maps error kinds to status codes and logs server-side faults.
func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, operations.ErrUnknownManager), errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		status = http.StatusPreconditionFailed
	case errors.Is(err, services.ErrUnavailable), errors.Is(err, services.ErrTimeout):
		status = http.StatusBadGateway
	case errors.Is(err, exclusions.ErrBuildInProgress):
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
