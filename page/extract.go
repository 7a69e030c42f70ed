package page

import (
	"regexp"
	"strings"
)

var (
	titleRegex       = regexp.MustCompile(`(?i)<h1>(.*?)</h1>`)
	descriptionRegex = regexp.MustCompile(`(?i)<meta name="?description"? content="([^"]+)">`)
	spacesRegex      = regexp.MustCompile(`  +`)
)

// ExtractTitle returns the first h1 heading of markup, cut to maxLength
// characters with an ellipsis and prefixed with prefix. Without a heading it
// returns prefix alone.
func ExtractTitle(markup, prefix string, maxLength int) string {
	var title string
	if m := titleRegex.FindStringSubmatch(markup); m != nil {
		title = m[1]
	}

	if runes := []rune(title); len(runes) > maxLength {
		title = string(runes[:maxLength]) + "…"
	}

	if title != "" {
		return prefix + ": " + title
	}
	return prefix
}

// ExtractDescription returns the meta description of markup with newlines and
// repeated spaces collapsed.
func ExtractDescription(markup string) string {
	m := descriptionRegex.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	return collapseSpaces(m[1])
}

func collapseSpaces(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return spacesRegex.ReplaceAllString(s, " ")
}
