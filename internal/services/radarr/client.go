// Package radarr lists movies and tags from a Radarr instance.
package radarr

import (
	"context"
	"net/http"

	"moversync/internal/config"
	"moversync/internal/media"
	"moversync/internal/services/arr"
)

// Client wraps the shared *arr client with Radarr resources.
type Client struct {
	api *arr.Client
}

type movieResource struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Path      string `json:"path"`
	HasFile   bool   `json:"hasFile"`
	Tags      []int  `json:"tags"`
	MovieFile *struct {
		Path string `json:"path"`
	} `json:"movieFile"`
}

// New builds a Radarr client from configuration. doer may be nil.
func New(cfg config.Manager, doer arr.HTTPDoer) *Client {
	return &Client{api: arr.New(arr.Config{
		Name:       "radarr",
		BaseURL:    cfg.URL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout(),
		HTTPClient: doer,
	})}
}

// NewFromConfig builds a client using the default HTTP transport.
func NewFromConfig(cfg *config.Config) *Client {
	return New(cfg.Radarr, http.DefaultClient)
}

// Name returns "radarr".
func (c *Client) Name() string { return c.api.Name() }

// Configured reports whether URL and API key are set.
func (c *Client) Configured() bool { return c.api.Configured() }

// TestConnection checks the instance responds to the status endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.api.Status(ctx)
	return err
}

// AllMovies returns every movie known to Radarr.
func (c *Client) AllMovies(ctx context.Context) ([]media.Movie, error) {
	var resources []movieResource
	if err := c.api.Get(ctx, "/api/v3/movie", nil, &resources); err != nil {
		return nil, err
	}
	movies := make([]media.Movie, 0, len(resources))
	for _, r := range resources {
		movie := media.Movie{
			ID:      r.ID,
			Title:   r.Title,
			Year:    r.Year,
			Path:    r.Path,
			HasFile: r.HasFile,
			Tags:    r.Tags,
		}
		if r.MovieFile != nil {
			movie.FilePath = r.MovieFile.Path
		}
		movies = append(movies, movie)
	}
	return movies, nil
}

// AllTags returns the tags defined in Radarr.
func (c *Client) AllTags(ctx context.Context) ([]media.Tag, error) {
	return fetchTags(ctx, c.api)
}

func fetchTags(ctx context.Context, api *arr.Client) ([]media.Tag, error) {
	resources, err := api.Tags(ctx)
	if err != nil {
		return nil, err
	}
	tags := make([]media.Tag, 0, len(resources))
	for _, r := range resources {
		tags = append(tags, media.Tag{ID: r.ID, Label: r.Label})
	}
	return tags, nil
}
