package eval

import (
	"fmt"
	"math"
	"strings"

	"github.com/evalmate/evalmate/internal/model"
)

// WeightedTotal computes the rubric-weighted score, rounded to two decimal
// places. Items without a matching weight contribute zero.
func WeightedTotal(items []model.ScoreItem, weights map[string]float64) float64 {
	var total float64
	for _, it := range items {
		total += it.Score * weights[it.RubricItemID]
	}
	return math.Round(total*100) / 100
}

// SynthesizeFeedback builds the overall feedback paragraph: a band summary
// keyed to the total, up to three of the strongest areas, and up to three
// issues drawn from criteria scoring under 70.
func SynthesizeFeedback(items []model.ScoreItem, titles map[string]string, total float64) string {
	var band string
	switch {
	case total >= 80:
		band = "excellent"
	case total >= 70:
		band = "good"
	case total >= 60:
		band = "satisfactory"
	default:
		band = "in need of attention"
	}

	var strong, weak []string
	for _, it := range items {
		title := titles[it.RubricItemID]
		if title == "" {
			title = it.RubricItemID
		}
		if it.Score >= 70 {
			if len(strong) < 3 {
				strong = append(strong, title)
			}
		} else if len(weak) < 3 {
			weak = append(weak, fmt.Sprintf("%s: %s", title, it.Gaps))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall the submission is %s (weighted score %.2f).", band, total)
	if len(strong) > 0 {
		fmt.Fprintf(&sb, " Strongest areas: %s.", strings.Join(strong, ", "))
	}
	if len(weak) > 0 {
		fmt.Fprintf(&sb, " Top issues to address: %s", strings.Join(weak, "; "))
	}
	return sb.String()
}
