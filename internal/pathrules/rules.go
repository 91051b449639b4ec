// Package pathrules rewrites library-manager paths into the canonical on-disk
// form the mover sees. Rewrites are driven by an ordered rule table built from
// configuration; the first matching rule wins.
package pathrules

import (
	"errors"
	"fmt"
	"strings"

	"moversync/internal/config"
)

// SegmentRule maps everything after the first case-insensitive occurrence of
// Segment onto Target.
type SegmentRule struct {
	Segment string
	Target  string
}

// PrefixRule replaces a literal leading Prefix with Target.
type PrefixRule struct {
	Prefix string
	Target string
}

// Rules is the rewrite table. Segment rules are evaluated before prefix rules,
// each list in order.
type Rules struct {
	CanonicalRoot string
	Segments      []SegmentRule
	Prefixes      []PrefixRule
}

// FromConfig builds the table from the [rewrite] section: movies segment, tv
// segment, then legacy prefixes.
func FromConfig(rw config.Rewrite) Rules {
	rules := Rules{
		CanonicalRoot: trimRoot(rw.MediaRoot),
		Segments: []SegmentRule{
			{Segment: rw.MovieSegment, Target: trimRoot(rw.MoviesRoot)},
			{Segment: rw.TVSegment, Target: trimRoot(rw.TVRoot)},
		},
	}
	for _, p := range rw.LegacyPrefixes {
		rules.Prefixes = append(rules.Prefixes, PrefixRule{Prefix: p.Prefix, Target: p.Target})
	}
	return rules
}

// Validate rejects tables that cannot produce canonical paths.
func (r Rules) Validate() error {
	if !strings.HasPrefix(r.CanonicalRoot, "/") {
		return errors.New("canonical root must be an absolute path")
	}
	for _, s := range r.Segments {
		if !strings.HasPrefix(s.Segment, "/") || !strings.HasSuffix(s.Segment, "/") || len(s.Segment) < 3 {
			return fmt.Errorf("segment %q must look like /name/", s.Segment)
		}
		if !strings.HasPrefix(s.Target, "/") || trimRoot(s.Target) == "/" {
			return fmt.Errorf("segment %q target must be an absolute path below /", s.Segment)
		}
	}
	for _, p := range r.Prefixes {
		if p.Prefix == "" {
			return errors.New("prefix rule with empty prefix")
		}
		if !strings.HasPrefix(p.Target, "/") {
			return fmt.Errorf("prefix %q target must be an absolute path", p.Prefix)
		}
	}
	return nil
}

// Normalize returns the canonical form of raw. Empty or quote-only input
// yields "". Normalize never fails and Normalize(Normalize(p)) == Normalize(p).
func (r Rules) Normalize(raw string) string {
	if r.isCanonical(raw) {
		return raw
	}

	cleaned := clean(raw)
	if cleaned == "" {
		return ""
	}
	if r.isCanonical(cleaned) {
		return cleaned
	}

	for _, s := range r.Segments {
		if s.Segment == "" {
			continue
		}
		idx := indexFoldASCII(cleaned, s.Segment)
		if idx < 0 {
			continue
		}
		return s.Target + "/" + cleaned[idx+len(s.Segment):]
	}

	for _, p := range r.Prefixes {
		if strings.HasPrefix(cleaned, p.Prefix) {
			return p.Target + cleaned[len(p.Prefix):]
		}
	}

	return cleaned
}

// isCanonical reports whether path already lives under the canonical root or
// one of the rewrite targets. Treating targets as canonical keeps rewriting
// idempotent when a target itself contains a segment such as "/movies/".
func (r Rules) isCanonical(path string) bool {
	if path == "" {
		return false
	}
	if underRoot(path, r.CanonicalRoot) {
		return true
	}
	for _, s := range r.Segments {
		if underRoot(path, s.Target) {
			return true
		}
	}
	for _, p := range r.Prefixes {
		if p.Target != "" && underRoot(path, trimRoot(p.Target)) {
			return true
		}
	}
	return false
}

func underRoot(path, root string) bool {
	if root == "" || root == "/" {
		return false
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

// indexFoldASCII finds sub in s folding only ASCII letters, so the returned
// offset is valid for s regardless of its encoding.
func indexFoldASCII(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if equalFoldASCII(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func clean(raw string) string {
	value := strings.TrimSpace(raw)
	for {
		trimmed := strings.TrimSpace(strings.Trim(value, `"'`))
		if trimmed == value {
			return value
		}
		value = trimmed
	}
}

func trimRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "/" {
		return root
	}
	return strings.TrimRight(root, "/")
}
