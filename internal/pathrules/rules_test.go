package pathrules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moversync/internal/config"
	"moversync/internal/pathrules"
)

func defaultRules(t testing.TB) pathrules.Rules {
	t.Helper()
	rules := pathrules.FromConfig(config.Rewrite{
		MediaRoot:    "/mnt/chloe/data/media",
		MoviesRoot:   "/mnt/chloe/data/media/movies/",
		TVRoot:       "/mnt/chloe/data/media/tv",
		MovieSegment: "/movies/",
		TVSegment:    "/tv/",
		LegacyPrefixes: []config.PrefixRewrite{
			{Prefix: "/chloe/", Target: "/mnt/chloe/data/media/"},
		},
	})
	require.NoError(t, rules.Validate())
	return rules
}

func TestNormalizeRuleTable(t *testing.T) {
	rules := defaultRules(t)
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"canonical passthrough", "/mnt/chloe/data/media/movies/Foo/Foo.mkv", "/mnt/chloe/data/media/movies/Foo/Foo.mkv"},
		{"canonical root itself", "/mnt/chloe/data/media", "/mnt/chloe/data/media"},
		{"movies segment", "/data/movies/Foo/Foo.mkv", "/mnt/chloe/data/media/movies/Foo/Foo.mkv"},
		{"movies segment other mount", "/mnt/root/movies/Foo/Foo.mkv", "/mnt/chloe/data/media/movies/Foo/Foo.mkv"},
		{"segment case insensitive", "/Data/MOVIES/Bar (2001)/Bar.mkv", "/mnt/chloe/data/media/movies/Bar (2001)/Bar.mkv"},
		{"tv segment", "/tv/Show/Season 01/S01E01.mkv", "/mnt/chloe/data/media/tv/Show/Season 01/S01E01.mkv"},
		{"movies wins over tv", "/x/movies/tv/odd.mkv", "/mnt/chloe/data/media/movies/tv/odd.mkv"},
		{"legacy prefix", "/chloe/music/album", "/mnt/chloe/data/media/music/album"},
		{"quotes and whitespace", `  "/data/movies/Foo/"  `, "/mnt/chloe/data/media/movies/Foo/"},
		{"single quotes", `'/srv/other/thing'`, "/srv/other/thing"},
		{"unmatched returned cleaned", " /srv/other/thing ", "/srv/other/thing"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"quotes only", `""`, ""},
		{"segment without trailing slash is not a match", "/data/movies", "/data/movies"},
		{"non-ascii before segment", "/İ/movies/Foo", "/mnt/chloe/data/media/movies/Foo"},
		{"kelvin sign before segment", "/\u212a/tv/Show", "/mnt/chloe/data/media/tv/Show"},
		{"latin-1 bytes before segment", "/data/\xe9t\xe9/Movies/Amelie.mkv", "/mnt/chloe/data/media/movies/Amelie.mkv"},
		{"invalid utf-8 before segment", "\xff\xff/movies/x", "/mnt/chloe/data/media/movies/x"},
		{"non-ascii after segment", "/data/movies/Amélie (2001)/Amélie.mkv", "/mnt/chloe/data/media/movies/Amélie (2001)/Amélie.mkv"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Normalize(tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rules := defaultRules(t)
	inputs := []string{
		"/data/movies/Foo/Foo.mkv",
		"/tv/Show/S01E01.mkv",
		"/chloe/tv/Show",
		`"/chloe/movies/x"`,
		" '/weird/ path ' ",
		"/MOVIES/movies/nested",
		"relative/movies/file",
		"/mnt/chloe/data/media/tv/movies/crossover",
		"",
	}
	for _, in := range inputs {
		once := rules.Normalize(in)
		assert.Equal(t, once, rules.Normalize(once), "input %q", in)
	}
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{
		"/mnt/chloe/data/media/movies/Foo/Foo.mkv",
		"/data/movies/Foo/Foo.mkv",
		"/Data/MOVIES/Bar (2001)/Bar.mkv",
		"/tv/Show/Season 01/S01E01.mkv",
		"/x/movies/tv/odd.mkv",
		"/chloe/music/album",
		`  "/data/movies/Foo/"  `,
		`'/srv/other/thing'`,
		`""`,
		"/data/movies",
		"/İ/movies/Foo",
		"/\u212a/tv/Show",
		"/data/\xe9t\xe9/Movies/Amelie.mkv",
		"\xff\xff/movies/x",
		"",
	} {
		f.Add(seed)
	}
	rules := defaultRules(f)
	f.Fuzz(func(t *testing.T, in string) {
		once := rules.Normalize(in)
		if twice := rules.Normalize(once); twice != once {
			t.Fatalf("Normalize(%q) = %q, then %q", in, once, twice)
		}
	})
}

func TestNormalizeIdempotentWhenTargetContainsSegment(t *testing.T) {
	rules := pathrules.Rules{
		CanonicalRoot: "/mnt/pool",
		Segments: []pathrules.SegmentRule{
			{Segment: "/movies/", Target: "/srv/movies/library"},
		},
	}
	require.NoError(t, rules.Validate())

	once := rules.Normalize("/data/movies/A/A.mkv")
	assert.Equal(t, "/srv/movies/library/A/A.mkv", once)
	assert.Equal(t, once, rules.Normalize(once))
}

func TestValidateRejectsBadTables(t *testing.T) {
	assert.Error(t, pathrules.Rules{CanonicalRoot: "media"}.Validate())
	assert.Error(t, pathrules.Rules{
		CanonicalRoot: "/m",
		Segments:      []pathrules.SegmentRule{{Segment: "movies", Target: "/m/movies"}},
	}.Validate())
	assert.Error(t, pathrules.Rules{
		CanonicalRoot: "/m",
		Prefixes:      []pathrules.PrefixRule{{Prefix: "", Target: "/m"}},
	}.Validate())
	assert.Error(t, pathrules.Rules{
		CanonicalRoot: "/m",
		Segments:      []pathrules.SegmentRule{{Segment: "/movies/", Target: "/"}},
	}.Validate())
	assert.Error(t, pathrules.Rules{
		CanonicalRoot: "/m",
		Prefixes:      []pathrules.PrefixRule{{Prefix: "/old/", Target: "m/"}},
	}.Validate())
}
