package rubric

import (
	"regexp"
	"strings"
)

var (
	bulletPrefix   = regexp.MustCompile(`^\s*[•\-–\*\+]+\s+`)
	numberedPrefix = regexp.MustCompile(`^\s*(?:\d+[\.\)]|[a-zA-Z][\.\)])\s+`)
	parenWeight    = regexp.MustCompile(`\((?:\d+(?:\.\d+)?\s*%|\d+(?:\.\d+)?\s*(?i:pts?|points?|marks?)|\d+(?:\.\d+)?/\d+(?:\.\d+)?)\)`)
)

// CleanText normalizes whitespace: collapses runs of spaces and tabs,
// trims each line, and drops empty lines at the edges.
func CleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(spaceRun.ReplaceAllString(ln, " "))
		out = append(out, ln)
	}
	joined := strings.Join(out, "\n")
	return strings.Trim(joined, "\n")
}

// SplitParagraphs splits text on blank lines into trimmed non-empty chunks.
func SplitParagraphs(s string) []string {
	var paras []string
	for _, p := range strings.Split(CleanText(s), "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// DetectBulletItems returns lines starting with a bullet marker, with the
// marker stripped.
func DetectBulletItems(s string) []string {
	var items []string
	for _, ln := range strings.Split(s, "\n") {
		if bulletPrefix.MatchString(ln) {
			item := strings.TrimSpace(bulletPrefix.ReplaceAllString(ln, ""))
			if item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// DetectNumberedItems returns lines starting with "1." / "1)" / "a." style
// enumeration, with the marker stripped.
func DetectNumberedItems(s string) []string {
	var items []string
	for _, ln := range strings.Split(s, "\n") {
		if numberedPrefix.MatchString(ln) {
			item := strings.TrimSpace(numberedPrefix.ReplaceAllString(ln, ""))
			if item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// SplitHeadingBody splits a list item into (title, body) using the first
// applicable separator, in precedence order: colon, spaced dash, position of
// a parenthesized weight token, sentence boundary for short leads, then a
// first-eight-words cut. Falls back to the whole text as title.
func SplitHeadingBody(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	if i := strings.Index(text, ":"); i > 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	}
	for _, sep := range []string{" - ", " – ", " — "} {
		if i := strings.Index(text, sep); i > 0 {
			return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+len(sep):])
		}
	}
	if loc := parenWeight.FindStringIndex(text); loc != nil {
		title := strings.TrimSpace(text[:loc[1]])
		body := strings.TrimSpace(text[loc[1]:])
		if title != "" {
			return title, body
		}
	}
	if i := strings.Index(text, ". "); i > 0 && i < 100 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+2:])
	}
	words := strings.Fields(text)
	if len(words) > 8 {
		return strings.Join(words[:8], " "), strings.Join(words[8:], " ")
	}
	return text, ""
}
