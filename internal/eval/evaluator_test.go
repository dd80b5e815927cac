package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/llm"
	"github.com/evalmate/evalmate/internal/model"
)

type fakeEntities struct {
	rubrics     map[string]model.Rubric
	questions   map[string]model.Question
	submissions map[string]model.Submission
}

func (f *fakeEntities) GetRubric(_ context.Context, id string) (model.Rubric, error) {
	r, ok := f.rubrics[id]
	if !ok {
		return model.Rubric{}, fmt.Errorf("rubric %s not found", id)
	}
	return r, nil
}

func (f *fakeEntities) GetQuestion(_ context.Context, id string) (model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return model.Question{}, fmt.Errorf("question %s not found", id)
	}
	return q, nil
}

func (f *fakeEntities) GetSubmission(_ context.Context, id string) (model.Submission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return model.Submission{}, fmt.Errorf("submission %s not found", id)
	}
	return s, nil
}

type memContexts struct {
	mu   sync.Mutex
	puts map[string]fusion.Context
}

func (m *memContexts) PutContext(_ context.Context, fc fusion.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = map[string]fusion.Context{}
	}
	m.puts[fc.ID] = fc
	return nil
}

func (m *memContexts) GetContext(_ context.Context, id string) (fusion.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fc, ok := m.puts[id]
	if !ok {
		return fusion.Context{}, fmt.Errorf("context %s not found", id)
	}
	return fc, nil
}

type memResults struct {
	mu   sync.Mutex
	puts []model.EvalResult
}

func (m *memResults) PutResult(_ context.Context, res model.EvalResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, res)
	return nil
}

// scriptedGen answers each call by invoking the next function in its
// script, cycling on exhaustion. Thread safe; counts calls.
type scriptedGen struct {
	mu     sync.Mutex
	script []func(req llm.Request) (string, error)
	calls  int
}

func (g *scriptedGen) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	fn := g.script[g.calls%len(g.script)]
	g.calls++
	g.mu.Unlock()
	return fn(req)
}

func (g *scriptedGen) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// itemIDFromPrompt digs the criterion id out of the user prompt so the
// scripted answer can echo it back, the way a real model is asked to.
func itemIDFromPrompt(user string) string {
	for _, ln := range strings.Split(user, "\n") {
		if after, ok := strings.CutPrefix(ln, "id: "); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

func goodAnswer(score float64, blockIDs ...string) func(req llm.Request) (string, error) {
	return func(req llm.Request) (string, error) {
		resp := map[string]any{"items": []map[string]any{{
			"rubric_item_id":          itemIDFromPrompt(req.User),
			"score":                   score,
			"evidence":                "The submission explains the process.",
			"evaluation":              "Meets the criterion well.",
			"completeness_percentage": score,
			"strengths":               "Clear explanation.",
			"gaps":                    "Missing one example.",
			"guidance":                "Add a concrete example.",
			"significance":            "Core to the assignment.",
			"evidence_block_ids":      blockIDs,
		}}}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}
}

type world struct {
	entities *fakeEntities
	results  *memResults
	sub      model.Submission
	rubric   model.Rubric
	blockID  string
}

func newWorld(t *testing.T, itemCount int) *world {
	t.Helper()
	rubricID := model.NewRubricID()
	questionID := model.NewQuestionID()
	blockID := model.NewBlockID()

	items := make([]model.RubricItem, itemCount)
	for i := range items {
		items[i] = model.RubricItem{
			ID:          model.NewRubricItemID(),
			Title:       fmt.Sprintf("Criterion %d", i+1),
			Description: "Assess this aspect of the work",
			Weight:      1.0 / float64(itemCount),
			Criterion:   model.CriterionContent,
		}
	}
	r := model.Rubric{ID: rubricID, Version: "v1", Items: items}
	q := model.Question{
		ID: questionID, RubricID: rubricID,
		Canonical: model.CanonicalDoc{ID: model.NewDocID(), Blocks: []model.DocBlock{
			{ID: model.NewBlockID(), Kind: model.BlockText, Text: "Explain the water cycle."},
		}},
	}
	sub := model.Submission{
		ID: model.NewSubmissionID(), StudentHandle: "bob",
		RubricID: rubricID, QuestionID: questionID,
		Canonical: model.CanonicalDoc{ID: model.NewDocID(), Blocks: []model.DocBlock{
			{ID: blockID, Kind: model.BlockText, Text: "Water evaporates, condenses, and precipitates."},
		}},
	}
	return &world{
		entities: &fakeEntities{
			rubrics:     map[string]model.Rubric{r.ID: r},
			questions:   map[string]model.Question{q.ID: q},
			submissions: map[string]model.Submission{sub.ID: sub},
		},
		results: &memResults{},
		sub:     sub,
		rubric:  r,
		blockID: blockID,
	}
}

func (w *world) evaluator(gen llm.Generator, opts ...Option) *Evaluator {
	b := fusion.NewBuilder(w.entities, &memContexts{}, fusion.HeuristicEstimator{}, "gpt-4o-mini")
	base := []Option{WithRetryPolicy(llm.Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})}
	return New(w.entities, b, gen, w.results, "gpt-4o-mini", append(base, opts...)...)
}

func TestEvaluateHappyPath(t *testing.T) {
	w := newWorld(t, 2)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){goodAnswer(80, w.blockID)}}

	res, err := w.evaluator(gen).Evaluate(context.Background(), w.sub.ID)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.InDelta(t, 80, res.Total, 0.001)
	assert.Equal(t, w.sub.ID, res.SubmissionID)
	assert.Equal(t, w.rubric.ID, res.RubricID)
	assert.Equal(t, "structured", res.Metadata["mode"])
	assert.Equal(t, "gpt-4o-mini", res.Metadata["model"])
	assert.Equal(t, "bob", res.Metadata["student"])
	assert.Equal(t, "FUSION-"+w.sub.ID, res.Metadata["fusion_context_id"])
	assert.NotEmpty(t, res.Metadata["evaluated_at"])
	assert.NotEmpty(t, res.OverallFeedback)
	assert.Len(t, w.results.puts, 1)

	for i, item := range res.Items {
		assert.Equal(t, w.rubric.Items[i].ID, item.RubricItemID)
		assert.Equal(t, []string{w.blockID}, item.EvidenceBlockIDs)
	}
}

func TestEvaluateInvalidJSONDegradesToFallback(t *testing.T) {
	w := newWorld(t, 1)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){
		func(llm.Request) (string, error) { return "I would give this a B+", nil },
	}}

	res, err := w.evaluator(gen).Evaluate(context.Background(), w.sub.ID)
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Zero(t, item.Score)
	assert.Zero(t, res.Total)
	for _, field := range []string{item.Evidence, item.Evaluation, item.Strengths, item.Gaps, item.Guidance, item.Significance} {
		assert.NotEmpty(t, field)
	}
}

func TestEvaluateSanitizesFabricatedEvidence(t *testing.T) {
	w := newWorld(t, 1)
	fake := model.NewBlockID()
	gen := &scriptedGen{script: []func(llm.Request) (string, error){goodAnswer(90, w.blockID, fake)}}

	res, err := w.evaluator(gen).Evaluate(context.Background(), w.sub.ID)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, []string{w.blockID}, res.Items[0].EvidenceBlockIDs)
}

func TestEvaluateRetriesTransientThenSucceeds(t *testing.T) {
	w := newWorld(t, 1)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){
		func(llm.Request) (string, error) {
			return "", &llm.ServiceError{Kind: llm.KindTransient, StatusCode: 429, Err: errors.New("rate limited")}
		},
		goodAnswer(75, w.blockID),
	}}

	res, err := w.evaluator(gen).Evaluate(context.Background(), w.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.callCount())
	assert.InDelta(t, 75, res.Total, 0.001)
}

func TestEvaluateTransientExhaustionDegradesToFallback(t *testing.T) {
	w := newWorld(t, 1)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){
		func(llm.Request) (string, error) {
			return "", &llm.ServiceError{Kind: llm.KindTransient, StatusCode: 503, Err: errors.New("overloaded")}
		},
	}}

	res, err := w.evaluator(gen).Evaluate(context.Background(), w.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.callCount())
	assert.Zero(t, res.Items[0].Score)
	assert.Contains(t, res.Items[0].Guidance, "manual review")
}

func TestEvaluateWeightViolationFailsBeforeModelCalls(t *testing.T) {
	w := newWorld(t, 2)
	broken := w.entities.rubrics[w.rubric.ID]
	broken.Items[0].Weight = 0.9 // sum now 1.4
	w.entities.rubrics[w.rubric.ID] = broken

	gen := &scriptedGen{script: []func(llm.Request) (string, error){goodAnswer(80, w.blockID)}}
	_, err := w.evaluator(gen).Evaluate(context.Background(), w.sub.ID)
	require.Error(t, err)
	assert.Zero(t, gen.callCount())
	assert.Empty(t, w.results.puts)
}

func TestEvaluateCancellationAborts(t *testing.T) {
	w := newWorld(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGen{script: []func(llm.Request) (string, error){
		func(llm.Request) (string, error) {
			cancel()
			return "", &llm.ServiceError{Kind: llm.KindTransient, StatusCode: 429, Err: errors.New("rate limited")}
		},
	}}

	_, err := w.evaluator(gen).Evaluate(ctx, w.sub.ID)
	require.Error(t, err)
	assert.Empty(t, w.results.puts)
}

func TestEvaluateMetadataClock(t *testing.T) {
	w := newWorld(t, 1)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){goodAnswer(70, w.blockID)}}

	res, err := w.evaluator(gen, WithClock(func() time.Time { return fixed })).Evaluate(context.Background(), w.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", res.Metadata["evaluated_at"])
}

func TestNarrativeMode(t *testing.T) {
	w := newWorld(t, 2)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){
		func(llm.Request) (string, error) {
			return `{"evaluation":"Solid work overall.","strengths":"Clear writing.","gaps":"Thin citations.","guidance":"Cite primary sources."}`, nil
		},
	}}

	res, err := w.evaluator(gen).Narrative(context.Background(), w.sub.ID)
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Zero(t, res.Total)
	assert.Equal(t, "narrative", res.Metadata["mode"])
	assert.Contains(t, res.OverallFeedback, "Solid work overall.")
	assert.Contains(t, res.OverallFeedback, "Cite primary sources.")
	assert.Len(t, w.results.puts, 1)
}

func TestNarrativeUnparseableIsError(t *testing.T) {
	w := newWorld(t, 1)
	gen := &scriptedGen{script: []func(llm.Request) (string, error){
		func(llm.Request) (string, error) { return "nice essay", nil },
	}}

	_, err := w.evaluator(gen).Narrative(context.Background(), w.sub.ID)
	require.Error(t, err)
	assert.Empty(t, w.results.puts)
}
