package eval

import (
	"fmt"

	"github.com/evalmate/evalmate/internal/model"
)

// rawItem is the decoded shape of one model-scored criterion before
// backfilling. Pointer numeric fields distinguish absent from zero.
type rawItem struct {
	RubricItemID           string   `json:"rubric_item_id"`
	Score                  *float64 `json:"score"`
	Evidence               string   `json:"evidence"`
	Evaluation             string   `json:"evaluation"`
	CompletenessPercentage *float64 `json:"completeness_percentage"`
	Strengths              string   `json:"strengths"`
	Gaps                   string   `json:"gaps"`
	Guidance               string   `json:"guidance"`
	Significance           string   `json:"significance"`
	EvidenceBlockIDs       []string `json:"evidence_block_ids"`
}

type scoredResponse struct {
	Items []rawItem `json:"items"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BackfillFeedback converts a possibly partial model item into a complete
// ScoreItem: numbers clamp to [0,100] and every empty prose field receives
// explicit placeholder text so downstream rendering never shows blanks.
func BackfillFeedback(raw rawItem, itemID string) model.ScoreItem {
	out := model.ScoreItem{
		RubricItemID:     itemID,
		Evidence:         raw.Evidence,
		Evaluation:       raw.Evaluation,
		Strengths:        raw.Strengths,
		Gaps:             raw.Gaps,
		Guidance:         raw.Guidance,
		Significance:     raw.Significance,
		EvidenceBlockIDs: raw.EvidenceBlockIDs,
	}
	if raw.Score != nil {
		out.Score = clamp(*raw.Score, 0, 100)
	}
	if raw.CompletenessPercentage != nil {
		out.CompletenessPercentage = clamp(*raw.CompletenessPercentage, 0, 100)
	} else {
		out.CompletenessPercentage = out.Score
	}
	if out.Evidence == "" {
		out.Evidence = "No specific evidence was cited."
	}
	if out.Evaluation == "" {
		out.Evaluation = "No evaluation detail was provided."
	}
	if out.Strengths == "" {
		out.Strengths = "No specific strengths were identified."
	}
	if out.Gaps == "" {
		out.Gaps = "No specific gaps were identified."
	}
	if out.Guidance == "" {
		out.Guidance = "Review the criterion description and revise accordingly."
	}
	if out.Significance == "" {
		out.Significance = "This criterion contributes to the overall assessment."
	}
	return out
}

// FallbackItem is the zero-score judgment recorded when a criterion could
// not be evaluated. Every field explains the failure so the result is
// self-describing.
func FallbackItem(itemID, reason string) model.ScoreItem {
	msg := fmt.Sprintf("Automatic evaluation was not possible: %s.", reason)
	return model.ScoreItem{
		RubricItemID:           itemID,
		Score:                  0,
		Evidence:               "No evidence could be assessed.",
		Evaluation:             msg,
		CompletenessPercentage: 0,
		Strengths:              "Not assessed.",
		Gaps:                   msg,
		Guidance:               "Request a manual review of this criterion.",
		Significance:           "This criterion contributes to the overall assessment.",
	}
}
