package operations

import (
	"context"

	"moversync/internal/logging"
	"moversync/internal/media"
)

// LibraryItem is one movie or show with resolved tag labels.
type LibraryItem struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Year     int      `json:"year,omitempty"`
	Path     string   `json:"path,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Excluded bool     `json:"excluded"`
}

// LibraryResponse lists a manager's library filtered by title.
type LibraryResponse struct {
	Manager string        `json:"manager"`
	Query   string        `json:"query,omitempty"`
	Total   int           `json:"total"`
	Items   []LibraryItem `json:"items"`
}

// Library lists the movies or shows of manager whose title contains query.
// Items carrying a selected tag are marked as excluded.
func (s *Service) Library(ctx context.Context, manager, query string) (LibraryResponse, error) {
	if _, err := s.manager(manager); err != nil {
		return LibraryResponse{}, err
	}
	snapshot, err := s.settings.Get(ctx)
	if err != nil {
		return LibraryResponse{}, err
	}
	tags := s.tagsForLabels(ctx, manager)
	resp := LibraryResponse{Manager: manager, Query: query}

	if manager == ManagerSonarr {
		shows, err := s.sonarr.AllShows(ctx)
		if err != nil {
			return resp, err
		}
		filter := media.NewTagFilter(snapshot.SonarrTagIDs...)
		for _, show := range media.SearchShows(shows, query) {
			resp.Items = append(resp.Items, LibraryItem{
				ID:       show.ID,
				Title:    show.Title,
				Year:     show.Year,
				Path:     show.Path,
				Tags:     media.TagLabels(show.Tags, tags),
				Excluded: filter.Matches(show.Tags),
			})
		}
	} else {
		movies, err := s.radarr.AllMovies(ctx)
		if err != nil {
			return resp, err
		}
		filter := media.NewTagFilter(snapshot.RadarrTagIDs...)
		for _, movie := range media.SearchMovies(movies, query) {
			resp.Items = append(resp.Items, LibraryItem{
				ID:       movie.ID,
				Title:    movie.Title,
				Year:     movie.Year,
				Path:     movie.Path,
				Tags:     media.TagLabels(movie.Tags, tags),
				Excluded: filter.Matches(movie.Tags),
			})
		}
	}
	resp.Total = len(resp.Items)
	return resp, nil
}

// tagsForLabels prefers the cached tag list and falls back to a live fetch.
func (s *Service) tagsForLabels(ctx context.Context, manager string) []media.Tag {
	if s.state != nil {
		if cached, _, err := s.state.Tags(ctx, manager); err == nil && len(cached) > 0 {
			return cached
		}
	}
	m, err := s.manager(manager)
	if err != nil {
		return nil
	}
	tags, err := m.AllTags(ctx)
	if err != nil {
		s.logger.Debug("tag labels unavailable", logging.String(logging.FieldManager, manager), logging.Error(err))
		return nil
	}
	return tags
}
