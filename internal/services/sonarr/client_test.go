package sonarr_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moversync/internal/config"
	"moversync/internal/services"
	"moversync/internal/services/sonarr"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/series":
			_, _ = w.Write([]byte(`[{"id":7,"title":"Severance","path":"/data/tv/Severance","tags":[2],"statistics":{"episodeFileCount":2}}]`))
		case "/api/v3/episodefile":
			if r.URL.Query().Get("seriesId") != "7" {
				http.Error(w, "unknown series", http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`[
				{"id":1,"seriesId":7,"seasonNumber":1,"path":"/data/tv/Severance/Season 01/S01E01.mkv","size":1000},
				{"id":2,"seriesId":7,"seasonNumber":1,"path":"/data/tv/Severance/Season 01/S01E02.mkv","size":2000}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAllShowsAndEpisodeFiles(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	client := sonarr.New(config.Manager{URL: srv.URL, APIKey: "k", RequestsPerSecond: 100}, srv.Client())
	shows, err := client.AllShows(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, 2, shows[0].EpisodeFileCount)
	assert.Equal(t, []int{2}, shows[0].Tags)

	files, err := client.EpisodeFiles(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(2000), files[1].Size)
	assert.Equal(t, 7, files[0].SeriesID)
}

func TestEpisodeFilesUnknownSeries(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	client := sonarr.New(config.Manager{URL: srv.URL, APIKey: "k"}, srv.Client())
	_, err := client.EpisodeFiles(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrUnavailable))
}
