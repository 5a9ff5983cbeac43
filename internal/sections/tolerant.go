package sections

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	boldHeading     = regexp.MustCompile(`\*\*[ \t]*(\d+[ \t]*[.)])?[ \t]*([^*\n]{1,80}?)[ \t]*:?[ \t]*\*\*[ \t]*:?`)
	markdownHeading = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*(?:\d+[ \t]*[.)][ \t]*)?([^\n]{1,80}?)[ \t]*:?[ \t]*$`)
	spaceRun        = regexp.MustCompile(`\s+`)
)

// keywords are checked in order; the first hit decides the key.
var keywords = []struct {
	key   Key
	words []string
}{
	{Timestamps, []string{"timestamp", "momento", "key moment"}},
	{Insights, []string{"insight"}},
	{Themes, []string{"tema", "theme", "mensage", "message"}},
	{Audio, []string{"audio"}},
	{Visual, []string{"visual"}},
	{Summary, []string{"resumo", "summary", "overview", "visao geral"}},
}

type span struct {
	key        Key
	start, end int
}

// SegmentTolerant is a forgiving variant of Segment. Headings may be bold or markdown,
// numbered with any ordinal or not at all, in any case, with or without accents. All
// headings are found in a single pass and each body runs to the next heading of any kind,
// so out-of-order headings do not bleed into each other. The first occurrence of a key wins.
func SegmentTolerant(raw string) Sections {
	spans := scanHeadings(raw)
	out := Sections{}
	for i, sp := range spans {
		if sp.key == "" {
			continue
		}
		if _, seen := out[sp.key]; seen {
			continue
		}
		end := len(raw)
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		if body := strings.TrimSpace(raw[sp.end:end]); body != "" {
			out[sp.key] = body
		}
	}
	return out
}

func scanHeadings(raw string) []span {
	var spans []span
	for _, m := range boldHeading.FindAllStringSubmatchIndex(raw, -1) {
		key := classify(raw[m[4]:m[5]])
		numbered := m[2] >= 0
		// Unnumbered bold text that names no section is emphasis, not a heading.
		if key == "" && !numbered {
			continue
		}
		spans = append(spans, span{key: key, start: m[0], end: m[1]})
	}
	for _, m := range markdownHeading.FindAllStringSubmatchIndex(raw, -1) {
		if overlaps(spans, m[0], m[1]) {
			continue
		}
		spans = append(spans, span{key: classify(raw[m[2]:m[3]]), start: m[0], end: m[1]})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func overlaps(spans []span, start, end int) bool {
	for _, sp := range spans {
		if start < sp.end && sp.start < end {
			return true
		}
	}
	return false
}

func classify(label string) Key {
	folded := normalizeLabel(label)
	for _, kw := range keywords {
		for _, w := range kw.words {
			if strings.Contains(folded, w) {
				return kw.key
			}
		}
	}
	return ""
}

func normalizeLabel(label string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, label)
	if err != nil {
		folded = label
	}
	folded = strings.ToLower(folded)
	return strings.TrimSpace(spaceRun.ReplaceAllString(folded, " "))
}
