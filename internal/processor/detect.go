package processor

import (
	"regexp"
	"strings"
)

var (
	heading      = regexp.MustCompile(`^#{1,6}\s+(\S.*)$`)
	listItem     = regexp.MustCompile(`(?m)^[\-\*]\s+\S`)
	markdownLink = regexp.MustCompile(`\[.+?\]\(.+?\)`)
	htmlTag      = regexp.MustCompile(`(?i)<(p|br|div|span|h[1-6]|ul|ol|li|table|tr|td|em|strong|b|i)(\s[^>]*)?/?>`)
)

// IsHTML reports whether content appears to be HTML: a document prologue or
// any common block or inline tag.
func IsHTML(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body") {
		return true
	}
	return htmlTag.MatchString(content)
}

// IsMarkdown uses heuristics to detect Markdown: a leading heading, list
// items, or inline links. HTML is never Markdown.
func IsMarkdown(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || IsHTML(trimmed) {
		return false
	}
	firstLine, _, _ := strings.Cut(trimmed, "\n")
	return heading.MatchString(firstLine) ||
		listItem.MatchString(trimmed) ||
		markdownLink.MatchString(trimmed)
}
