package radarr_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moversync/internal/config"
	"moversync/internal/services/radarr"
)

func TestAllMoviesMapsMovieFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/movie", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":1,"title":"Alien","year":1979,"path":"/data/movies/Alien (1979)","hasFile":true,"tags":[3],
			 "movieFile":{"path":"/data/movies/Alien (1979)/Alien.mkv"}},
			{"id":2,"title":"Dune","path":"/data/movies/Dune","hasFile":false,"tags":[]}
		]`))
	}))
	defer srv.Close()

	client := radarr.New(config.Manager{URL: srv.URL, APIKey: "k", TimeoutSeconds: 5}, srv.Client())
	movies, err := client.AllMovies(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 2)

	assert.Equal(t, "/data/movies/Alien (1979)/Alien.mkv", movies[0].FilePath)
	assert.Equal(t, []int{3}, movies[0].Tags)
	assert.True(t, movies[0].HasFile)
	assert.Empty(t, movies[1].FilePath)
	assert.False(t, movies[1].HasFile)
}

func TestTestConnectionAndTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/system/status":
			_, _ = w.Write([]byte(`{"appName":"Radarr","version":"5.2.0"}`))
		case "/api/v3/tag":
			_, _ = w.Write([]byte(`[{"id":3,"label":"keep-cached"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := radarr.New(config.Manager{URL: srv.URL, APIKey: "k"}, nil)
	require.True(t, client.Configured())
	require.NoError(t, client.TestConnection(context.Background()))

	tags, err := client.AllTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "keep-cached", tags[0].Label)
}
