package sections

import (
	"regexp"
	"strconv"
	"strings"
)

// nextHeading marks where any numbered bold heading starts, whatever its ordinal.
var nextHeading = regexp.MustCompile(`\*\*\d+\.`)

var strictPatterns = buildStrictPatterns()

func buildStrictPatterns() map[Key]*regexp.Regexp {
	out := make(map[Key]*regexp.Regexp, len(headings))
	for k, h := range headings {
		expr := `\*\*` + strconv.Itoa(h.ordinal) + `\.\s*` + regexp.QuoteMeta(h.label) + `\*\*`
		out[k] = regexp.MustCompile(expr)
	}
	return out
}

// Segment extracts sections using the exact `**N. Label**` headings the analysis prompt asks for.
// Matching is case-sensitive. Each section is located independently: its body runs from the
// end of its own heading to the next `**<digits>.` marker or the end of the text.
func Segment(raw string) Sections {
	out := Sections{}
	for _, k := range Keys {
		loc := strictPatterns[k].FindStringIndex(raw)
		if loc == nil {
			continue
		}
		rest := raw[loc[1]:]
		end := len(rest)
		if next := nextHeading.FindStringIndex(rest); next != nil {
			end = next[0]
		}
		if body := strings.TrimSpace(rest[:end]); body != "" {
			out[k] = body
		}
	}
	return out
}
