package fusion

import (
	"time"

	"github.com/evalmate/evalmate/internal/model"
)

// ContextIDPrefix prefixes the deterministic fusion context identifier.
const ContextIDPrefix = "FUSION-"

// ContextID derives the identifier of a submission's fusion context.
// Deterministic so rebuilds overwrite rather than accumulate.
func ContextID(submissionID string) string { return ContextIDPrefix + submissionID }

// ItemSnapshot is the frozen view of one rubric item at fusion time.
type ItemSnapshot struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Weight      float64         `json:"weight"`
	Criterion   model.Criterion `json:"criterion"`
}

// Visual is the evaluation-facing view of a visual block: its caption and
// any recognized text, without the binary payload.
type Visual struct {
	ID      string           `json:"id"`
	Type    model.VisualType `json:"type"`
	Caption string           `json:"caption"`
	OCRText string           `json:"ocr_text,omitempty"`
}

// Context bundles everything one evaluation needs: the question, the
// submission content, visual descriptions and the rubric snapshot, plus
// bookkeeping counts.
type Context struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	QuestionID   string `json:"question_id"`
	RubricID     string `json:"rubric_id"`

	QuestionText   string         `json:"question_text"`
	SubmissionText string         `json:"submission_text"`
	Visuals        []Visual       `json:"visuals"`
	Items          []ItemSnapshot `json:"items"`
	BlockIDs       []string       `json:"block_ids"`

	TextBlockCount   int `json:"text_block_count"`
	VisualBlockCount int `json:"visual_block_count"`
	TokenEstimate    int `json:"token_estimate"`

	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
