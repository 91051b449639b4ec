package exclusions

import (
	"errors"
	"os"
	"path"
	"strings"

	"moversync/internal/fileutil"
)

// Summary counts the entries of an exclusion file.
type Summary struct {
	TotalCount  int `json:"total_count"`
	Files       int `json:"files"`
	Directories int `json:"directories"`
}

// Summarize counts the non-blank lines of the exclusion file at p. An entry
// whose last element ends in a short extension counts as a file. A missing file yields
// a zero summary.
func Summarize(p string) (Summary, error) {
	entries, err := ReadEntries(p)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, entry := range entries {
		s.TotalCount++
		if looksLikeFile(entry) {
			s.Files++
		} else {
			s.Directories++
		}
	}
	return s, nil
}

// ReadEntries returns the entries of the exclusion file at p, or nil when it
// does not exist.
func ReadEntries(p string) ([]string, error) {
	entries, err := fileutil.ReadLines(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

func looksLikeFile(entry string) bool {
	ext := path.Ext(entry)
	if len(ext) < 2 || len(ext) > 5 {
		return false
	}
	return !strings.ContainsAny(ext, " ()[]")
}
