package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/evalmate/evalmate/internal/llm"
	"github.com/evalmate/evalmate/internal/model"
)

// narrativeResponse is the four-field prose contract for narrative mode.
// No scores by design of the prompt; a result in this mode carries no
// score items and a zero total.
type narrativeResponse struct {
	Evaluation string `json:"evaluation"`
	Strengths  string `json:"strengths"`
	Gaps       string `json:"gaps"`
	Guidance   string `json:"guidance"`
}

// Narrative produces whole-submission prose feedback in a single model
// call. Unlike Evaluate, an unusable model response is an error here:
// there is no per-criterion fallback to degrade to.
func (e *Evaluator) Narrative(ctx context.Context, submissionID string) (model.EvalResult, error) {
	if e.gen == nil {
		return model.EvalResult{}, errNoGenerator
	}
	fc, err := e.builder.Build(ctx, submissionID)
	if err != nil {
		return model.EvalResult{}, err
	}
	rubric, err := e.entities.GetRubric(ctx, fc.RubricID)
	if err != nil {
		return model.EvalResult{}, fmt.Errorf("load rubric %s: %w", fc.RubricID, err)
	}
	if err := model.ValidateWeights(rubric, 0); err != nil {
		return model.EvalResult{}, err
	}

	req := llm.Request{
		System:   llm.NarrativeSystem,
		User:     llm.NarrativeUser(fc),
		JSONMode: true,
	}
	raw, err := llm.Do(ctx, e.retry, "narrative "+submissionID, llm.IsTransient, func() (string, error) {
		return e.gen.Generate(ctx, req)
	})
	if err != nil {
		return model.EvalResult{}, fmt.Errorf("narrative review of %s: %w", submissionID, err)
	}

	var resp narrativeResponse
	if err := llm.Parse(raw, &resp); err != nil {
		return model.EvalResult{}, fmt.Errorf("narrative review of %s: %w", submissionID, err)
	}

	feedback := fmt.Sprintf("%s\n\nStrengths: %s\n\nGaps: %s\n\nGuidance: %s",
		resp.Evaluation, resp.Strengths, resp.Gaps, resp.Guidance)

	res := model.EvalResult{
		ID:              model.NewEvalID(),
		SubmissionID:    fc.SubmissionID,
		RubricID:        rubric.ID,
		OverallFeedback: feedback,
		Metadata: map[string]string{
			"mode":              "narrative",
			"model":             e.modelName,
			"evaluated_at":      e.now().UTC().Format(time.RFC3339),
			"token_estimate":    fmt.Sprintf("%d", fc.TokenEstimate),
			"student":           fc.Metadata["student"],
			"fusion_context_id": fc.ID,
		},
	}
	if err := model.ValidateResultIDs(res); err != nil {
		return model.EvalResult{}, err
	}
	if err := e.save(ctx, res); err != nil {
		return model.EvalResult{}, err
	}
	clog.FromContext(ctx).Info("narrative review complete", "result", res.ID)
	return res, nil
}
