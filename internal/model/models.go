package model

import "time"

// VisualType tags the kind of visual content extracted from a document.
type VisualType string

const (
	VisualFigure     VisualType = "figure"
	VisualTable      VisualType = "table"
	VisualEquation   VisualType = "equation"
	VisualChart      VisualType = "chart"
	VisualDiagram    VisualType = "diagram"
	VisualMap        VisualType = "map"
	VisualScreenshot VisualType = "screenshot"
)

// Criterion is the closed set of categories a rubric item can belong to.
type Criterion string

const (
	CriterionContent     Criterion = "content"
	CriterionAccuracy    Criterion = "accuracy"
	CriterionStructure   Criterion = "structure"
	CriterionVisuals     Criterion = "visuals"
	CriterionCitations   Criterion = "citations"
	CriterionOriginality Criterion = "originality"
)

// CriterionOrder fixes the enumeration order used for classifier tie-breaks.
var CriterionOrder = []Criterion{
	CriterionContent,
	CriterionAccuracy,
	CriterionStructure,
	CriterionVisuals,
	CriterionCitations,
	CriterionOriginality,
}

type BlockKind string

const (
	BlockText   BlockKind = "text"
	BlockVisual BlockKind = "visual"
)

// VisualBlock describes a figure, chart, table or similar element lifted out
// of a source document by the ingestion collaborator.
type VisualBlock struct {
	ID              string     `json:"id"`
	Type            VisualType `json:"type"`
	SourcePath      string     `json:"source_path,omitempty"`
	CaptionText     string     `json:"caption_text,omitempty"`
	OCRText         string     `json:"ocr_text,omitempty"`
	StructuredTable [][]string `json:"structured_table,omitempty"`
}

// DocBlock is one ordered content unit of a canonical document. Exactly one
// of Text or Visual is populated, according to Kind.
type DocBlock struct {
	ID     string       `json:"id"`
	Kind   BlockKind    `json:"kind"`
	Text   string       `json:"text,omitempty"`
	Visual *VisualBlock `json:"visual,omitempty"`
	Page   int          `json:"page,omitempty"`
	BBox   []float64    `json:"bbox,omitempty"` // normalized [x1,y1,x2,y2]
}

// CanonicalDoc is the parsed, block-structured form of an uploaded document.
type CanonicalDoc struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	SourceFiles []string   `json:"source_files,omitempty"`
	Blocks      []DocBlock `json:"blocks"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
}

// BlockIDs returns the set of block identifiers in the document. These are
// the only legal values for ScoreItem evidence references.
func (d CanonicalDoc) BlockIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(d.Blocks))
	for _, b := range d.Blocks {
		ids[b.ID] = struct{}{}
	}
	return ids
}

// Tables collects the structured table payloads of all visual blocks,
// in document order.
func (d CanonicalDoc) Tables() [][][]string {
	var tables [][][]string
	for _, b := range d.Blocks {
		if b.Kind == BlockVisual && b.Visual != nil && len(b.Visual.StructuredTable) > 0 {
			tables = append(tables, b.Visual.StructuredTable)
		}
	}
	return tables
}

// TextBlocks returns the text content of all text blocks, in document order.
func (d CanonicalDoc) TextBlocks() []string {
	var out []string
	for _, b := range d.Blocks {
		if b.Kind == BlockText && b.Text != "" {
			out = append(out, b.Text)
		}
	}
	return out
}

// RubricItem is one weighted grading criterion. Immutable once its rubric is
// stored; Weight is a fraction in [0,1].
type RubricItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Weight      float64   `json:"weight"`
	Criterion   Criterion `json:"criterion"`
}

// Rubric is a weighted list of grading criteria for one assignment.
type Rubric struct {
	ID         string       `json:"id"`
	Course     string       `json:"course"`
	Assignment string       `json:"assignment"`
	Version    string       `json:"version"`
	Items      []RubricItem `json:"items"`
	Canonical  CanonicalDoc `json:"canonical"`
}

// Weights maps rubric item id to its weight fraction.
func (r Rubric) Weights() map[string]float64 {
	w := make(map[string]float64, len(r.Items))
	for _, it := range r.Items {
		w[it.ID] = it.Weight
	}
	return w
}

// Question is an assignment prompt linked to a rubric.
type Question struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Canonical CanonicalDoc `json:"canonical"`
	RubricID  string       `json:"rubric_id"`
}

// Submission is a student's answer document for one question.
type Submission struct {
	ID            string       `json:"id"`
	StudentHandle string       `json:"student_handle"`
	Canonical     CanonicalDoc `json:"canonical"`
	RubricID      string       `json:"rubric_id"`
	QuestionID    string       `json:"question_id"`
}

// ScoreItem is the judgment for one rubric criterion. After finalization all
// seven feedback dimensions are non-empty and every evidence block id exists
// in the submission.
type ScoreItem struct {
	RubricItemID string  `json:"rubric_item_id"`
	Score        float64 `json:"score"` // 0..100

	Evidence               string  `json:"evidence"`
	Evaluation             string  `json:"evaluation"`
	CompletenessPercentage float64 `json:"completeness_percentage"` // 0..100
	Strengths              string  `json:"strengths"`
	Gaps                   string  `json:"gaps"`
	Guidance               string  `json:"guidance"`
	Significance           string  `json:"significance"`

	EvidenceBlockIDs []string `json:"evidence_block_ids"`
}

// EvalResult is the finished evaluation of one submission against one
// rubric. Items is empty for narrative-mode results. Never mutated after
// creation; re-evaluations produce fresh results.
type EvalResult struct {
	ID              string            `json:"id"`
	SubmissionID    string            `json:"submission_id"`
	RubricID        string            `json:"rubric_id"`
	Total           float64           `json:"total"` // 0..100, weighted
	Items           []ScoreItem       `json:"items"`
	OverallFeedback string            `json:"overall_feedback"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}
