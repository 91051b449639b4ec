package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moversync/internal/logging"
	"moversync/internal/logs"
	"moversync/internal/metrics"
	"moversync/internal/operations"
	"moversync/internal/settings"
	"moversync/internal/testsupport"
)

const testToken = "s3cret"

type apiFixture struct {
	daemon *Daemon
	server *httptest.Server
}

func newAPIFixture(t *testing.T, opts ...testsupport.ConfigOption) *apiFixture {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithAPIToken(testToken)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	m := metrics.New()
	ops, err := operations.New(cfg, store, logging.NewNop(), operations.WithObserver(m))
	require.NoError(t, err)
	d, err := New(cfg, ops, logging.NewNop(), WithMetrics(m))
	require.NoError(t, err)
	srv := httptest.NewServer(d.api.routes())
	t.Cleanup(srv.Close)
	return &apiFixture{daemon: d, server: srv}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPIRequiresBearerToken(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ok := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, ok.StatusCode)
	assert.NotEmpty(t, ok.Header.Get(requestIDHeader))
	status := decodeJSON[StatusResponse](t, ok)
	assert.False(t, status.Daemon.Running)
}

func TestAPIEchoesRequestID(t *testing.T) {
	f := newAPIFixture(t)
	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/exclusions/stats", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(requestIDHeader))
}

func TestAPIBuildThenDownload(t *testing.T) {
	f := newAPIFixture(t, testsupport.WithCustomFolders("/mnt/media/tv/Keep"))

	missing := f.do(t, http.MethodGet, "/api/exclusions", "")
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	build := f.do(t, http.MethodPost, "/api/exclusions/build", "")
	require.Equal(t, http.StatusOK, build.StatusCode)
	resp := decodeJSON[operations.BuildResponse](t, build)
	assert.Equal(t, operations.StatusSuccess, resp.Status)
	assert.Equal(t, 1, resp.TotalCount)

	file := f.do(t, http.MethodGet, "/api/exclusions?download=1", "")
	require.Equal(t, http.StatusOK, file.StatusCode)
	assert.Contains(t, file.Header.Get("Content-Disposition"), "mover_exclusions.txt")
	body, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/media/tv/Keep\n", string(body))

	history := f.do(t, http.MethodGet, "/api/exclusions/history?limit=5", "")
	runs := decodeJSON[[]map[string]any](t, history)
	require.Len(t, runs, 1)
	assert.Equal(t, "api", runs[0]["trigger"])

	wrongMethod := f.do(t, http.MethodGet, "/api/exclusions/build", "")
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.StatusCode)
}

func TestAPIMoverStatsNullWithoutLogs(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/mover/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stats":null}`, string(body))

	index := f.do(t, http.MethodGet, "/api/mover/logs", "")
	body, err = io.ReadAll(index.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPIErrorMapping(t *testing.T) {
	f := newAPIFixture(t)

	unknown := f.do(t, http.MethodGet, "/api/tags/lidarr", "")
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode)

	invalid := f.do(t, http.MethodPut, "/api/settings", `{"full_sync_cron":"every now and then"}`)
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode)

	malformed := f.do(t, http.MethodPost, "/api/folders", `{"folders":`)
	assert.Equal(t, http.StatusBadRequest, malformed.StatusCode)
}

func TestAPIFolderEdits(t *testing.T) {
	f := newAPIFixture(t)

	added := f.do(t, http.MethodPost, "/api/folders", `{"folders":["/mnt/a","/mnt/b"]}`)
	require.Equal(t, http.StatusOK, added.StatusCode)
	snapshot := decodeJSON[settings.Settings](t, added)
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, snapshot.CustomFolders)

	removed := f.do(t, http.MethodDelete, "/api/folders", `{"folders":["/mnt/a"]}`)
	require.Equal(t, http.StatusOK, removed.StatusCode)
	snapshot = decodeJSON[settings.Settings](t, removed)
	assert.Equal(t, []string{"/mnt/b"}, snapshot.CustomFolders)
}

func TestAPIMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodPost, "/api/exclusions/build", "")

	resp := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `moversync_builds_total{status="success"} 1`)
}

func TestAPILogsTailAndClear(t *testing.T) {
	f := newAPIFixture(t)
	logPath := f.daemon.LogPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(logPath), 0o755))
	require.NoError(t, os.WriteFile(logPath, []byte(strings.Join([]string{
		"2026-10-19T10:00:00Z INFO daemon: started",
		"2026-10-19T10:00:01Z WARN exclusions: cache list missing",
		"2026-10-19T10:00:02Z INFO exclusions: build complete",
	}, "\n")+"\n"), 0o644))

	tail := f.do(t, http.MethodGet, "/api/logs?limit=1", "")
	require.Equal(t, http.StatusOK, tail.StatusCode)
	result := decodeJSON[logs.TailResult](t, tail)
	require.Len(t, result.Lines, 1)
	assert.Contains(t, result.Lines[0], "build complete")

	warn := f.do(t, http.MethodGet, "/api/logs?level=warn", "")
	result = decodeJSON[logs.TailResult](t, warn)
	require.Len(t, result.Lines, 1)
	assert.Contains(t, result.Lines[0], "cache list missing")

	cleared := f.do(t, http.MethodPost, "/api/logs/clear", "")
	require.Equal(t, http.StatusOK, cleared.StatusCode)
	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
