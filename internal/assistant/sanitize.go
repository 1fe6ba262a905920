package assistant

import (
	"regexp"
	"strings"
)

var (
	emphasisPattern = regexp.MustCompile(`\*\*|__`)
	linkPattern     = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	citationPattern = regexp.MustCompile(`\[[^\]]*\]`)
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	sourcesPattern  = regexp.MustCompile(`(?is)sources?:.*$`)
)

// Sanitize cleans raw model output for display: strips emphasis markup,
// inline links, bracketed citations, raw URLs, and any trailing sources
// section, collapses whitespace, and hard-truncates to maxWords.
func Sanitize(answer string, maxWords int) string {
	text := emphasisPattern.ReplaceAllString(answer, "")
	text = linkPattern.ReplaceAllString(text, "")
	text = citationPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimSpace(sourcesPattern.ReplaceAllString(text, ""))
	return capWords(text, maxWords)
}

// capWords truncates text to at most max words.
func capWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, " ")
}
