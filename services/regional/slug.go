package regional

import (
	"regexp"
	"strings"

	"lyrics-finder-go/utils"
)

// DefaultMaxSlugs caps the candidates a single query can produce.
const DefaultMaxSlugs = 20

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
	songWord     = regexp.MustCompile(`\bsong\b`)
)

// Rewrite turns a cleaned query (lower-case, [a-z0-9 ] only, single spaces)
// into another candidate. An empty result is skipped.
type Rewrite struct {
	Name  string
	Apply func(clean string) string
}

func replaceRewrite(name, pattern, repl string) Rewrite {
	re := regexp.MustCompile(pattern)
	return Rewrite{Name: name, Apply: func(clean string) string {
		return re.ReplaceAllString(clean, repl)
	}}
}

// DefaultRewrites is tried in order after the base forms. The artist and
// title canonicalizations mirror slugs the regional site is known to use.
var DefaultRewrites = []Rewrite{
	replaceRewrite("godbless", `\bgod\s+bless\b`, "godbless"),
	replaceRewrite("anirudh-ravichander", `\banirudh\b(\s+ravichander\b)?`, "anirudh ravichander"),
	replaceRewrite("paaldabba", `\bpaal\s+dabba\b`, "paaldabba"),
	replaceRewrite("drop-song-lyrics", `\s+(song|lyrics)\b`, ""),
	{Name: "nospace", Apply: func(clean string) string { return strings.ReplaceAll(clean, " ", "") }},
	{Name: "song-suffix", Apply: func(clean string) string { return clean + " song" }},
	{Name: "tamil-lyrics-suffix", Apply: func(clean string) string { return clean + " tamil lyrics" }},
	{Name: "nospace-lyrics", Apply: func(clean string) string { return strings.ReplaceAll(clean, " ", "") + " lyrics" }},
}

// SlugGenerator produces ranked URL-slug candidates for a free-text query.
type SlugGenerator struct {
	Rewrites []Rewrite
	Max      int
}

func NewSlugGenerator() *SlugGenerator {
	return &SlugGenerator{Rewrites: DefaultRewrites, Max: DefaultMaxSlugs}
}

// cleanQuery lower-cases q, drops everything outside [a-z0-9 ] and collapses whitespace.
func cleanQuery(q string) string {
	q = nonSlugChars.ReplaceAllString(strings.ToLower(q), "")
	return strings.TrimSpace(whitespace.ReplaceAllString(q, " "))
}

func hyphenate(s string) string {
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "-")
	return hyphenRuns.ReplaceAllString(s, "-")
}

// Slugify returns the base slug for q.
func Slugify(q string) string {
	return hyphenate(cleanQuery(q))
}

// Generate returns candidates in priority order: the base slug, its
// "-song-lyrics" and "-lyrics" forms, the rewrite table, then forms with
// the word "song" removed. The result is deduplicated and capped.
func (g *SlugGenerator) Generate(query string) []string {
	clean := cleanQuery(query)
	if clean == "" {
		return nil
	}
	base := hyphenate(clean)

	candidates := []string{base, base + "-song-lyrics", base + "-lyrics"}

	for _, rw := range g.Rewrites {
		out := rw.Apply(clean)
		if utils.RuneLen(out) <= 2 {
			continue
		}
		candidates = append(candidates, hyphenate(out))
	}

	if strings.Contains(clean, "song") {
		withoutSong := hyphenate(songWord.ReplaceAllString(clean, ""))
		candidates = append(candidates, withoutSong, withoutSong+"-lyrics")
	}

	max := g.Max
	if max <= 0 {
		max = DefaultMaxSlugs
	}

	seen := make(map[string]struct{}, len(candidates))
	slugs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.Trim(c, "-")
		if utils.RuneLen(c) <= 1 {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		slugs = append(slugs, c)
		if len(slugs) == max {
			break
		}
	}
	return slugs
}
