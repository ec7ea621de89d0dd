package chat

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	scriptTagPattern  = regexp.MustCompile(`(?is)<\s*/?\s*script[^>]*>`)
	eventAttrPattern  = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsProtocolPattern = regexp.MustCompile(`(?i)javascript\s*:`)
)

// SanitizeText strips control characters and script-like markup from message
// text before it is persisted. Whitespace is trimmed; newlines and tabs
// survive, everything else below 0x20 does not.
func SanitizeText(text string) string {
	text = scriptTagPattern.ReplaceAllString(text, "")
	text = eventAttrPattern.ReplaceAllString(text, "")
	text = jsProtocolPattern.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
