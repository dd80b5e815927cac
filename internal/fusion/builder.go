package fusion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/rubric"
)

// defaultCaption stands in for visuals whose caption extraction failed.
const defaultCaption = "Visual content (no caption available)"

// EntityStore supplies the persisted entities a fusion context is built
// from.
type EntityStore interface {
	GetRubric(ctx context.Context, id string) (model.Rubric, error)
	GetQuestion(ctx context.Context, id string) (model.Question, error)
	GetSubmission(ctx context.Context, id string) (model.Submission, error)
}

// ContextStore persists fusion contexts.
type ContextStore interface {
	PutContext(ctx context.Context, fc Context) error
	GetContext(ctx context.Context, id string) (Context, error)
}

// Builder assembles fusion contexts from stored entities.
type Builder struct {
	entities EntityStore
	contexts ContextStore
	tokens   Estimator
	model    string
}

func NewBuilder(entities EntityStore, contexts ContextStore, tokens Estimator, model string) *Builder {
	if tokens == nil {
		tokens = HeuristicEstimator{}
	}
	return &Builder{entities: entities, contexts: contexts, tokens: tokens, model: model}
}

// Build assembles and persists the fusion context for a submission. Linkage
// between submission, question and rubric is validated before any content
// is touched. Rebuilding for the same submission overwrites the previous
// context.
func (b *Builder) Build(ctx context.Context, submissionID string) (Context, error) {
	sub, err := b.entities.GetSubmission(ctx, submissionID)
	if err != nil {
		return Context{}, fmt.Errorf("load submission %s: %w", submissionID, err)
	}
	q, err := b.entities.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return Context{}, fmt.Errorf("load question %s: %w", sub.QuestionID, err)
	}
	r, err := b.entities.GetRubric(ctx, sub.RubricID)
	if err != nil {
		return Context{}, fmt.Errorf("load rubric %s: %w", sub.RubricID, err)
	}
	if err := model.ValidateLinkage(r, q, sub); err != nil {
		return Context{}, err
	}

	fc := Context{
		ID:           ContextID(sub.ID),
		SubmissionID: sub.ID,
		QuestionID:   q.ID,
		RubricID:     r.ID,
		QuestionText: rubric.CleanText(strings.Join(q.Canonical.TextBlocks(), "\n\n")),
		CreatedAt:    time.Now().UTC(),
		Metadata: map[string]string{
			"rubric_version": r.Version,
			"student":        sub.StudentHandle,
			"model":          b.model,
		},
	}

	var textParts []string
	for _, blk := range sub.Canonical.Blocks {
		fc.BlockIDs = append(fc.BlockIDs, blk.ID)
		switch blk.Kind {
		case model.BlockText:
			if cleaned := rubric.CleanText(blk.Text); cleaned != "" {
				textParts = append(textParts, cleaned)
				fc.TextBlockCount++
			}
		case model.BlockVisual:
			if blk.Visual == nil {
				continue
			}
			caption := blk.Visual.CaptionText
			if caption == "" {
				caption = defaultCaption
			}
			fc.Visuals = append(fc.Visuals, Visual{
				ID:      blk.ID,
				Type:    blk.Visual.Type,
				Caption: caption,
				OCRText: blk.Visual.OCRText,
			})
			fc.VisualBlockCount++
		}
	}
	fc.SubmissionText = strings.Join(textParts, "\n\n")

	for _, it := range r.Items {
		fc.Items = append(fc.Items, ItemSnapshot{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Weight:      it.Weight,
			Criterion:   it.Criterion,
		})
	}

	fc.TokenEstimate = b.estimate(fc)

	if b.contexts != nil {
		if err := b.contexts.PutContext(ctx, fc); err != nil {
			return Context{}, fmt.Errorf("persist fusion context %s: %w", fc.ID, err)
		}
	}
	clog.FromContext(ctx).Info("built fusion context",
		"id", fc.ID,
		"text_blocks", fc.TextBlockCount,
		"visual_blocks", fc.VisualBlockCount,
		"token_estimate", fc.TokenEstimate)
	return fc, nil
}

// Load fetches a previously built fusion context for a submission.
func (b *Builder) Load(ctx context.Context, submissionID string) (Context, error) {
	return b.contexts.GetContext(ctx, ContextID(submissionID))
}

func (b *Builder) estimate(fc Context) int {
	var sb strings.Builder
	sb.WriteString(fc.QuestionText)
	sb.WriteString(fc.SubmissionText)
	for _, v := range fc.Visuals {
		sb.WriteString(v.Caption)
		sb.WriteString(v.OCRText)
	}
	for _, it := range fc.Items {
		sb.WriteString(it.Title)
		sb.WriteString(it.Description)
	}
	return b.tokens.Estimate(sb.String())
}
