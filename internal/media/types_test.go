package media_test

import (
	"slices"
	"testing"

	"moversync/internal/media"
)

func TestMovieExclusionPathPrefersFile(t *testing.T) {
	cases := []struct {
		name  string
		movie media.Movie
		want  string
		ok    bool
	}{
		{"file", media.Movie{HasFile: true, Path: "/data/movies/A", FilePath: "/data/movies/A/A.mkv"}, "/data/movies/A/A.mkv", true},
		{"folder fallback", media.Movie{HasFile: true, Path: "/data/movies/B"}, "/data/movies/B", true},
		{"not downloaded", media.Movie{HasFile: false, Path: "/data/movies/C"}, "", false},
		{"no paths", media.Movie{HasFile: true}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.movie.ExclusionPath()
			if got != tc.want || ok != tc.ok {
				t.Fatalf("ExclusionPath() = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestTagFilterMatches(t *testing.T) {
	filter := media.NewTagFilter(5, 0, -1, 2)
	if filter.Empty() {
		t.Fatal("expected non-empty filter")
	}
	if !slices.Equal(filter.IDs(), []int{2, 5}) {
		t.Fatalf("unexpected ids: %v", filter.IDs())
	}
	if !filter.Matches([]int{9, 5}) {
		t.Fatal("expected intersection to match")
	}
	if filter.Matches([]int{9}) || filter.Matches(nil) {
		t.Fatal("expected disjoint tags not to match")
	}
	if !media.NewTagFilter().Empty() {
		t.Fatal("expected empty filter")
	}
}

func TestTagLabelsAndSearch(t *testing.T) {
	tags := []media.Tag{{ID: 1, Label: "keep-cached"}, {ID: 2, Label: ""}}
	labels := media.TagLabels([]int{1, 2, 7}, tags)
	if !slices.Equal(labels, []string{"keep-cached", "#2", "#7"}) {
		t.Fatalf("unexpected labels: %v", labels)
	}

	shows := []media.Show{{Title: "The Expanse"}, {Title: "Severance"}}
	if got := media.SearchShows(shows, "  expan "); len(got) != 1 || got[0].Title != "The Expanse" {
		t.Fatalf("unexpected search result: %+v", got)
	}
	if got := media.SearchShows(shows, ""); len(got) != 2 {
		t.Fatalf("expected all shows for empty query, got %d", len(got))
	}
	movies := []media.Movie{{Title: "Arrival"}, {Title: "Dune"}}
	if got := media.SearchMovies(movies, "DUNE"); len(got) != 1 || got[0].Title != "Dune" {
		t.Fatalf("unexpected movie search result: %+v", got)
	}
}
