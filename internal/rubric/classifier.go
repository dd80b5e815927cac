package rubric

import (
	"strings"

	"github.com/evalmate/evalmate/internal/model"
)

// criterionKeywords drives the keyword classifier. Matching is substring
// containment over the lowercased title+description; every occurrence of a
// keyword counts once toward its criterion.
var criterionKeywords = map[model.Criterion][]string{
	model.CriterionContent: {
		"content", "depth", "coverage", "complete", "thorough",
		"understanding", "analysis", "argument", "explanation", "detail",
	},
	model.CriterionAccuracy: {
		"accuracy", "accurate", "correct", "fact", "precision",
		"error", "valid", "sound",
	},
	model.CriterionStructure: {
		"structure", "organization", "organisation", "flow", "format",
		"layout", "clarity", "coherence", "grammar", "writing",
	},
	model.CriterionVisuals: {
		"visual", "figure", "chart", "diagram", "graph", "image",
		"table", "illustration", "map", "screenshot",
	},
	model.CriterionCitations: {
		"citation", "cite", "reference", "source", "bibliography",
		"attribution", "apa", "mla",
	},
	model.CriterionOriginality: {
		"original", "creativ", "novel", "insight", "innovative",
		"unique", "plagiar",
	},
}

// ClassifyCriterion assigns a rubric item to a criterion by keyword hit
// count over its title and description. Ties break by enumeration order of
// model.CriterionOrder; no hits at all default to content.
func ClassifyCriterion(title, description string) model.Criterion {
	text := strings.ToLower(title + " " + description)
	best := model.CriterionContent
	bestScore := 0
	for _, c := range model.CriterionOrder {
		score := 0
		for _, kw := range criterionKeywords[c] {
			score += strings.Count(text, kw)
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}
