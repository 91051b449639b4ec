package exclusions_test

import (
	"path/filepath"
	"testing"

	"moversync/internal/exclusions"
	"moversync/internal/testsupport"
)

func TestSummarizeCountsFilesAndDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclusions.txt")
	testsupport.WriteLines(t, path,
		"/mnt/media/movies/Alien (1979)/Alien.mkv",
		"",
		"/mnt/media/tv/Mr. Robot",
		"/mnt/media/tv/Severance/Season 01/S01E01.mkv",
		"/mnt/cache/keep",
	)

	s, err := exclusions.Summarize(path)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.TotalCount != 4 || s.Files != 2 || s.Directories != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestSummarizeMissingFileIsZero(t *testing.T) {
	s, err := exclusions.Summarize(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s != (exclusions.Summary{}) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
