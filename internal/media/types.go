package media

import (
	"slices"
	"strconv"
	"strings"
)

// Tag is a manager-defined label attached to movies or shows.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Movie is the subset of a Radarr movie the exclusion builder needs.
type Movie struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	Path     string `json:"path,omitempty"`
	HasFile  bool   `json:"has_file"`
	FilePath string `json:"file_path,omitempty"`
	Tags     []int  `json:"tags,omitempty"`
}

// ExclusionPath returns the path to exclude for a downloaded movie,
// preferring the file over the folder.
func (m Movie) ExclusionPath() (string, bool) {
	if !m.HasFile {
		return "", false
	}
	if p := strings.TrimSpace(m.FilePath); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(m.Path); p != "" {
		return p, true
	}
	return "", false
}

// Show is the subset of a Sonarr series the exclusion builder needs.
type Show struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	Year             int    `json:"year,omitempty"`
	Path             string `json:"path,omitempty"`
	Tags             []int  `json:"tags,omitempty"`
	EpisodeFileCount int    `json:"episode_file_count"`
}

// EpisodeFile is one downloaded episode of a show.
type EpisodeFile struct {
	ID           int    `json:"id"`
	SeriesID     int    `json:"series_id"`
	SeasonNumber int    `json:"season_number"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
}

// TagFilter is the set of tag ids that mark media for exclusion.
type TagFilter map[int]struct{}

// NewTagFilter builds a filter from ids, ignoring non-positive values.
func NewTagFilter(ids ...int) TagFilter {
	filter := make(TagFilter, len(ids))
	for _, id := range ids {
		if id > 0 {
			filter[id] = struct{}{}
		}
	}
	return filter
}

// Empty reports whether the filter selects nothing.
func (f TagFilter) Empty() bool {
	return len(f) == 0
}

// Matches reports whether any of tags is in the filter.
func (f TagFilter) Matches(tags []int) bool {
	for _, id := range tags {
		if _, ok := f[id]; ok {
			return true
		}
	}
	return false
}

// IDs returns the filter members in ascending order.
func (f TagFilter) IDs() []int {
	ids := make([]int, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// TagLabels resolves ids against tags, falling back to the numeric id for
// unknown tags.
func TagLabels(ids []int, tags []Tag) []string {
	byID := make(map[int]string, len(tags))
	for _, tag := range tags {
		byID[tag.ID] = tag.Label
	}
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := byID[id]; ok && label != "" {
			labels = append(labels, label)
			continue
		}
		labels = append(labels, "#"+strconv.Itoa(id))
	}
	return labels
}

// SearchShows returns shows whose title contains query, case-insensitively.
// An empty query returns every show.
func SearchShows(shows []Show, query string) []Show {
	return search(shows, query, func(s Show) string { return s.Title })
}

// SearchMovies is SearchShows for movies.
func SearchMovies(movies []Movie, query string) []Movie {
	return search(movies, query, func(m Movie) string { return m.Title })
}

func search[T any](items []T, query string, title func(T) string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	matches := make([]T, 0)
	for _, item := range items {
		if strings.Contains(strings.ToLower(title(item)), query) {
			matches = append(matches, item)
		}
	}
	return matches
}
