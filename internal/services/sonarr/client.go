// Package sonarr lists series, episode files, and tags from a Sonarr instance.
package sonarr

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"moversync/internal/config"
	"moversync/internal/media"
	"moversync/internal/services/arr"
)

// Client wraps the shared *arr client with Sonarr resources.
type Client struct {
	api      *arr.Client
	throttle *arr.Client
}

type seriesResource struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	Path       string `json:"path"`
	Tags       []int  `json:"tags"`
	Statistics *struct {
		EpisodeFileCount int `json:"episodeFileCount"`
	} `json:"statistics"`
}

type episodeFileResource struct {
	ID           int    `json:"id"`
	SeriesID     int    `json:"seriesId"`
	SeasonNumber int    `json:"seasonNumber"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
}

// New builds a Sonarr client from configuration. doer may be nil. Episode
// file lookups go through a throttled client because they fan out per show.
func New(cfg config.Manager, doer arr.HTTPDoer) *Client {
	base := arr.Config{
		Name:       "sonarr",
		BaseURL:    cfg.URL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout(),
		HTTPClient: doer,
	}
	throttled := base
	throttled.RequestsPerSecond = cfg.RequestsPerSecond
	return &Client{api: arr.New(base), throttle: arr.New(throttled)}
}

// NewFromConfig builds a client using the default HTTP transport.
func NewFromConfig(cfg *config.Config) *Client {
	return New(cfg.Sonarr, http.DefaultClient)
}

// Name returns "sonarr".
func (c *Client) Name() string { return c.api.Name() }

// Configured reports whether URL and API key are set.
func (c *Client) Configured() bool { return c.api.Configured() }

// TestConnection checks the instance responds to the status endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.api.Status(ctx)
	return err
}

// AllShows returns every series known to Sonarr.
func (c *Client) AllShows(ctx context.Context) ([]media.Show, error) {
	var resources []seriesResource
	if err := c.api.Get(ctx, "/api/v3/series", nil, &resources); err != nil {
		return nil, err
	}
	shows := make([]media.Show, 0, len(resources))
	for _, r := range resources {
		show := media.Show{
			ID:    r.ID,
			Title: r.Title,
			Year:  r.Year,
			Path:  r.Path,
			Tags:  r.Tags,
		}
		if r.Statistics != nil {
			show.EpisodeFileCount = r.Statistics.EpisodeFileCount
		}
		shows = append(shows, show)
	}
	return shows, nil
}

// EpisodeFiles returns the downloaded episode files of a series.
func (c *Client) EpisodeFiles(ctx context.Context, seriesID int) ([]media.EpisodeFile, error) {
	query := url.Values{"seriesId": []string{strconv.Itoa(seriesID)}}
	var resources []episodeFileResource
	if err := c.throttle.Get(ctx, "/api/v3/episodefile", query, &resources); err != nil {
		return nil, err
	}
	files := make([]media.EpisodeFile, 0, len(resources))
	for _, r := range resources {
		files = append(files, media.EpisodeFile{
			ID:           r.ID,
			SeriesID:     r.SeriesID,
			SeasonNumber: r.SeasonNumber,
			Path:         r.Path,
			Size:         r.Size,
		})
	}
	return files, nil
}

// AllTags returns the tags defined in Sonarr.
func (c *Client) AllTags(ctx context.Context) ([]media.Tag, error) {
	resources, err := c.api.Tags(ctx)
	if err != nil {
		return nil, err
	}
	tags := make([]media.Tag, 0, len(resources))
	for _, r := range resources {
		tags = append(tags, media.Tag{ID: r.ID, Label: r.Label})
	}
	return tags, nil
}
