package normalize

import (
	"html"
	"math"
	"regexp"
	"strings"
)

var (
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	breakRe     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraCloseRe = regexp.MustCompile(`(?i)</p>`)
	spaceRe     = regexp.MustCompile(`[ \t]+`)
	newlineRe   = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes tags and entities and collapses whitespace. Used for the
// fast list-view path.
func StripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// PlainText converts detail-view HTML to readable plain text: paragraph and
// break markup become newlines, remaining tags are dropped, entities are
// fully decoded, lines are trimmed, and runs of 3+ newlines collapse to
// exactly 2.
func PlainText(s string) string {
	s = breakRe.ReplaceAllString(s, "\n")
	s = paraCloseRe.ReplaceAllString(s, "\n\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate bounds s to n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}

// wordsPerMinute is the assumed reading speed for the detail path.
const wordsPerMinute = 200

// charsPerMinute is the cheaper list-view heuristic.
const charsPerMinute = 1000

// ReadTimeFromWords estimates reading minutes from full content. Monotonic
// in content length and never below 1.
func ReadTimeFromWords(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ReadTimeFromLength estimates reading minutes from a character count.
func ReadTimeFromLength(chars int) int {
	minutes := int(math.Ceil(float64(chars) / charsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
