package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/llm"
	"github.com/evalmate/evalmate/internal/model"
)

const (
	defaultConcurrency = 3
	defaultSliceBudget = 6000
)

// ResultStore persists finished evaluations.
type ResultStore interface {
	PutResult(ctx context.Context, res model.EvalResult) error
}

// Evaluator orchestrates a full submission evaluation: fusion context
// assembly, per-criterion model calls with bounded concurrency, and
// aggregation into a stored result.
type Evaluator struct {
	entities fusion.EntityStore
	builder  *fusion.Builder
	gen      llm.Generator
	results  ResultStore

	modelName   string
	concurrency int
	sliceBudget int
	retry       llm.Policy
	now         func() time.Time
}

type Option func(*Evaluator)

// WithConcurrency bounds the number of criteria evaluated in parallel.
func WithConcurrency(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithSliceBudget sets the character budget for per-criterion content
// slices.
func WithSliceBudget(chars int) Option {
	return func(e *Evaluator) {
		if chars > 0 {
			e.sliceBudget = chars
		}
	}
}

// WithRetryPolicy overrides the model call retry policy.
func WithRetryPolicy(p llm.Policy) Option {
	return func(e *Evaluator) { e.retry = p }
}

// WithClock overrides the time source. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

func New(entities fusion.EntityStore, builder *fusion.Builder, gen llm.Generator, results ResultStore, modelName string, opts ...Option) *Evaluator {
	e := &Evaluator{
		entities:    entities,
		builder:     builder,
		gen:         gen,
		results:     results,
		modelName:   modelName,
		concurrency: defaultConcurrency,
		sliceBudget: defaultSliceBudget,
		retry:       llm.DefaultPolicy(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate grades a submission against its rubric, one model call per
// criterion. Weight validation runs before any model call; a rubric whose
// weights do not sum to 1.0 fails fast. Individual criterion failures
// degrade to zero-score fallback items instead of failing the evaluation;
// only context cancellation aborts the whole run.
func (e *Evaluator) Evaluate(ctx context.Context, submissionID string) (model.EvalResult, error) {
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
	sub, err := e.entities.GetSubmission(ctx, submissionID)
	if err != nil {
		return model.EvalResult{}, fmt.Errorf("load submission %s: %w", submissionID, err)
	}
	if err := model.ValidateWeights(rubric, 0); err != nil {
		return model.EvalResult{}, err
	}

	blockIDs := sub.Canonical.BlockIDs()
	items := make([]model.ScoreItem, len(fc.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, snap := range fc.Items {
		g.Go(func() error {
			item, err := e.evaluateItem(gctx, fc, snap, blockIDs)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.EvalResult{}, err
	}

	res := e.assemble(fc, rubric, items)
	res.Metadata["mode"] = "structured"

	if err := model.ValidateEvidenceBlocks(res, sub); err != nil {
		return model.EvalResult{}, err
	}
	if err := model.ValidateResultIDs(res); err != nil {
		return model.EvalResult{}, err
	}
	if err := e.save(ctx, res); err != nil {
		return model.EvalResult{}, err
	}
	return res, nil
}

// evaluateItem runs one criterion through the model. Transient exhaustion,
// permanent backend errors and unparseable output all degrade to a
// fallback item; only cancellation propagates.
func (e *Evaluator) evaluateItem(ctx context.Context, fc fusion.Context, snap fusion.ItemSnapshot, known map[string]struct{}) (model.ScoreItem, error) {
	log := clog.FromContext(ctx).With("rubric_item", snap.ID)

	slice := Slice(fc.SubmissionText, Keywords(snap.Title, snap.Description), e.sliceBudget)
	req := llm.Request{
		System:   llm.StructuredSystem,
		User:     llm.StructuredUser(fc, snap, slice),
		JSONMode: true,
	}

	raw, err := llm.Do(ctx, e.retry, "score "+snap.ID, llm.IsTransient, func() (string, error) {
		return e.gen.Generate(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.ScoreItem{}, ctx.Err()
		}
		log.Warn("criterion evaluation failed", "error", err)
		return FallbackItem(snap.ID, "the model call failed"), nil
	}

	var resp scoredResponse
	if err := llm.Parse(raw, &resp); err != nil || len(resp.Items) == 0 {
		log.Warn("criterion response unusable", "error", err)
		return FallbackItem(snap.ID, "the model response could not be parsed"), nil
	}

	item := BackfillFeedback(resp.Items[0], snap.ID)
	item.EvidenceBlockIDs = sanitizeEvidence(log, item.EvidenceBlockIDs, known)
	return item, nil
}

// sanitizeEvidence drops evidence references to blocks the submission does
// not contain. Models occasionally invent ids; a fabricated reference must
// never reach a stored result.
func sanitizeEvidence(log *clog.Logger, ids []string, known map[string]struct{}) []string {
	var kept []string
	for _, id := range ids {
		if _, ok := known[id]; ok {
			kept = append(kept, id)
			continue
		}
		log.Warn("dropping fabricated evidence block id", "block_id", id)
	}
	return kept
}

func (e *Evaluator) assemble(fc fusion.Context, rubric model.Rubric, items []model.ScoreItem) model.EvalResult {
	titles := make(map[string]string, len(rubric.Items))
	for _, it := range rubric.Items {
		titles[it.ID] = it.Title
	}
	total := WeightedTotal(items, rubric.Weights())
	return model.EvalResult{
		ID:              model.NewEvalID(),
		SubmissionID:    fc.SubmissionID,
		RubricID:        rubric.ID,
		Total:           total,
		Items:           items,
		OverallFeedback: SynthesizeFeedback(items, titles, total),
		Metadata: map[string]string{
			"model":             e.modelName,
			"evaluated_at":      e.now().UTC().Format(time.RFC3339),
			"token_estimate":    fmt.Sprintf("%d", fc.TokenEstimate),
			"student":           fc.Metadata["student"],
			"fusion_context_id": fc.ID,
		},
	}
}

func (e *Evaluator) save(ctx context.Context, res model.EvalResult) error {
	if e.results == nil {
		return nil
	}
	if err := e.results.PutResult(ctx, res); err != nil {
		return fmt.Errorf("persist result %s: %w", res.ID, err)
	}
	return nil
}

var errNoGenerator = errors.New("no model backend configured")
