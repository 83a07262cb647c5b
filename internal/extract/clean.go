package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	excessBreaksRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spaceRunRe     = regexp.MustCompile(` +`)
	hyphenBreakRe  = regexp.MustCompile(`-\s*\n\s*`)
)

// CleanText tidies raw page text before analysis.
//
// Rules, in order: runs of blank lines collapse to one, repeated spaces
// collapse, words hyphenated across a line break are joined, and lines of
// three characters or fewer or made only of digits (page numbers, running
// heads) are dropped.
func CleanText(text string) string {
	text = excessBreaksRe.ReplaceAllString(text, "\n\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = hyphenBreakRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= 3 || isDigits(line) {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
