package regional

import (
	"regexp"
	"strings"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/utils"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	UnknownField = "Unknown"

	MinLyricsLength    = 50
	MinContainerLength = 100
	MaxLyricsLength    = 3000

	titleSuffix = "Song Lyrics"
	tamilMarker = "தமிழ்"
)

var (
	// Labels are tried in order; the site prints each field in English and Tamil.
	singerLabels   = []string{"Singers", "பாடகர்கள்"}
	composerLabels = []string{"Music by", "இசையமைப்பாளர்"}

	contentSelectors = []string{".entry-content", ".post-content", ".lyrics-content", ".content", "article"}

	tamilLetters  = regexp.MustCompile(`[\x{0BA4}-\x{0BB9}]`)
	tamilKeywords = []string{"ஆண்", "குழு"}

	trailingWS = regexp.MustCompile(`[ \t]+\n`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	chatFooter = regexp.MustCompile(`(?is)tamil chat room.*$`)
	copyright  = regexp.MustCompile(`(?is)©[^\n]*tamil2lyrics.*$`)
)

// Field is an extracted metadata value that remembers whether it was present on the page.
type Field struct {
	Value string
	Found bool
}

// Or returns the value when found, def otherwise.
func (f Field) Or(def string) string {
	if f.Found {
		return f.Value
	}
	return def
}

// ExtractedSong is what a regional lyrics page yields.
type ExtractedSong struct {
	Title         string
	Singers       Field
	MusicDirector Field
	Lyrics        string
	Method        string
}

// Extract pulls a title, singer and music director fields, and a lyrics block
// out of a lyrics page. It reports false when no lyrics block is long enough.
func Extract(html, fallbackTitle string) (*ExtractedSong, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debugf("%s Unparseable page for %q: %v", logcolors.LogExtract, fallbackTitle, err)
		return nil, false
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")

	lyrics, method := findLyrics(doc)
	if lyrics == "" {
		return nil, false
	}
	lyrics = cleanLyrics(lyrics)
	if utils.RuneLen(lyrics) <= MinLyricsLength {
		return nil, false
	}

	return &ExtractedSong{
		Title:         extractTitle(doc, fallbackTitle),
		Singers:       labeledField(doc, singerLabels),
		MusicDirector: labeledField(doc, composerLabels),
		Lyrics:        lyrics,
		Method:        method,
	}, true
}

func extractTitle(doc *goquery.Document, fallback string) string {
	title := strings.TrimSpace(strings.Replace(doc.Find("h1").First().Text(), titleSuffix, "", 1))
	if title != "" {
		return title
	}
	return strings.TrimSpace(strings.ReplaceAll(fallback, "-", " "))
}

// labeledField reads "<strong>Label</strong> : value" pairs, trying each label in turn.
func labeledField(doc *goquery.Document, labels []string) Field {
	for _, label := range labels {
		value := labelValue(doc, label, labels)
		if value != "" && value != UnknownField {
			return Field{Value: value, Found: true}
		}
	}
	return Field{Value: UnknownField}
}

func labelValue(doc *goquery.Document, label string, allLabels []string) string {
	marker := doc.Find("strong, b").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	}).First()
	if marker.Length() == 0 {
		return ""
	}

	text := marker.Parent().Text()
	for _, l := range allLabels {
		text = strings.Replace(text, l, "", 1)
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), ":：-"))
}

// findLyrics runs the block heuristics in order and reports which one matched.
func findLyrics(doc *goquery.Document) (string, string) {
	if text := lyricsAfterMarker(doc); text != "" {
		return text, "marker"
	}
	if text := longestTamilBlock(doc); text != "" {
		return text, "script"
	}
	if text := firstContentContainer(doc); text != "" {
		return text, "container"
	}
	return "", ""
}

func lyricsAfterMarker(doc *goquery.Document) string {
	var found string
	doc.Find("body *").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(ownText(s), tamilMarker)
	}).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Next().Text())
		if utils.RuneLen(text) > MinLyricsLength {
			found = text
			return false
		}
		return true
	})
	return found
}

func longestTamilBlock(doc *goquery.Document) string {
	var best string
	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !looksTamil(text) {
			return
		}
		if n := utils.RuneLen(text); n > MinLyricsLength && n > utils.RuneLen(best) {
			best = text
		}
	})
	return best
}

func looksTamil(text string) bool {
	for _, kw := range tamilKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return tamilLetters.MatchString(text)
}

func firstContentContainer(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if utils.RuneLen(text) > MinContainerLength {
			return text
		}
	}
	return ""
}

// ownText returns the text of s's direct text children only.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

func cleanLyrics(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingWS.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	text = chatFooter.ReplaceAllString(text, "")
	text = copyright.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return utils.TruncateRunes(text, MaxLyricsLength)
}
