package eval

import (
	"sort"
	"strings"
)

const maxKeywords = 12

// Keywords extracts search terms from a rubric item's title and
// description: lowercase words longer than three characters, punctuation
// stripped, deduplicated in first-seen order, capped at maxKeywords.
func Keywords(title, description string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(title + " " + description) {
		w = strings.ToLower(strings.Trim(w, ".,:;()[]\"'"))
		if len(w) <= 3 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// Slice selects the lines of content most relevant to the given keywords,
// up to maxChars. Lines score by how many keywords they contain; ties
// prefer shorter lines so more of them fit. Accumulation stops at the
// first ranked line that does not fit the budget. When nothing matches,
// the head of the content is returned truncated at a clean boundary.
func Slice(content string, keywords []string, maxChars int) string {
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}

	lines := strings.Split(content, "\n")
	type scored struct {
		line  string
		score int
	}
	var ranked []scored
	for _, ln := range lines {
		lower := strings.ToLower(ln)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{ln, score})
		}
	}

	if len(ranked) == 0 {
		return truncateClean(content, maxChars)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return len(ranked[i].line) < len(ranked[j].line)
	})

	var acc []string
	total := 0
	for _, s := range ranked {
		if total+len(s.line)+1 > maxChars {
			break
		}
		acc = append(acc, s.line)
		total += len(s.line) + 1
	}
	if len(acc) == 0 {
		return truncateClean(content, maxChars)
	}
	return strings.Join(acc, "\n")
}

// truncateClean cuts at the last space before the limit so a truncated
// slice never ends mid-word.
func truncateClean(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := s[:maxChars]
	if i := strings.LastIndexByte(cut, ' '); i > maxChars/2 {
		cut = cut[:i]
	}
	return cut
}
