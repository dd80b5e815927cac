package fusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
		return model.Rubric{}, errNotFound(id)
	}
	return r, nil
}

func (f *fakeEntities) GetQuestion(_ context.Context, id string) (model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return model.Question{}, errNotFound(id)
	}
	return q, nil
}

func (f *fakeEntities) GetSubmission(_ context.Context, id string) (model.Submission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return model.Submission{}, errNotFound(id)
	}
	return s, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "not found: " + string(e) }

type memContexts struct {
	puts map[string]Context
}

func (m *memContexts) PutContext(_ context.Context, fc Context) error {
	if m.puts == nil {
		m.puts = map[string]Context{}
	}
	m.puts[fc.ID] = fc
	return nil
}

func (m *memContexts) GetContext(_ context.Context, id string) (Context, error) {
	fc, ok := m.puts[id]
	if !ok {
		return Context{}, errNotFound(id)
	}
	return fc, nil
}

func fixture() (*fakeEntities, model.Submission) {
	rubricID := model.NewRubricID()
	questionID := model.NewQuestionID()

	r := model.Rubric{
		ID:      rubricID,
		Version: "v2",
		Items: []model.RubricItem{
			{ID: model.NewRubricItemID(), Title: "Content", Description: "Depth", Weight: 0.6, Criterion: model.CriterionContent},
			{ID: model.NewRubricItemID(), Title: "Accuracy", Description: "Facts", Weight: 0.4, Criterion: model.CriterionAccuracy},
		},
	}
	q := model.Question{
		ID:       questionID,
		RubricID: rubricID,
		Canonical: model.CanonicalDoc{
			ID:     model.NewDocID(),
			Blocks: []model.DocBlock{{ID: model.NewBlockID(), Kind: model.BlockText, Text: "Explain photosynthesis."}},
		},
	}
	sub := model.Submission{
		ID:            model.NewSubmissionID(),
		StudentHandle: "alice",
		RubricID:      rubricID,
		QuestionID:    questionID,
		Canonical: model.CanonicalDoc{
			ID: model.NewDocID(),
			Blocks: []model.DocBlock{
				{ID: model.NewBlockID(), Kind: model.BlockText, Text: "Photosynthesis converts light to energy."},
				{ID: model.NewBlockID(), Kind: model.BlockVisual, Visual: &model.VisualBlock{
					ID:   model.NewVisualID(),
					Type: model.VisualDiagram,
				}},
			},
		},
	}
	return &fakeEntities{
		rubrics:     map[string]model.Rubric{r.ID: r},
		questions:   map[string]model.Question{q.ID: q},
		submissions: map[string]model.Submission{sub.ID: sub},
	}, sub
}

func TestBuildAssemblesContext(t *testing.T) {
	entities, sub := fixture()
	contexts := &memContexts{}
	b := NewBuilder(entities, contexts, HeuristicEstimator{}, "gpt-4o-mini")

	fc, err := b.Build(context.Background(), sub.ID)
	require.NoError(t, err)

	assert.Equal(t, "FUSION-"+sub.ID, fc.ID)
	assert.Equal(t, sub.ID, fc.SubmissionID)
	assert.Equal(t, "Explain photosynthesis.", fc.QuestionText)
	assert.Contains(t, fc.SubmissionText, "converts light")
	assert.Equal(t, 1, fc.TextBlockCount)
	assert.Equal(t, 1, fc.VisualBlockCount)
	assert.Len(t, fc.BlockIDs, 2)
	assert.Len(t, fc.Items, 2)
	assert.Positive(t, fc.TokenEstimate)
	assert.Equal(t, "v2", fc.Metadata["rubric_version"])
	assert.Equal(t, "alice", fc.Metadata["student"])

	require.Len(t, fc.Visuals, 1)
	assert.Equal(t, "Visual content (no caption available)", fc.Visuals[0].Caption)

	stored, err := b.Load(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, fc.ID, stored.ID)
}

func TestBuildCleansWhitespace(t *testing.T) {
	entities, sub := fixture()
	s := entities.submissions[sub.ID]
	s.Canonical.Blocks = []model.DocBlock{
		{ID: model.NewBlockID(), Kind: model.BlockText, Text: "  Photosynthesis   converts\tlight.  "},
		{ID: model.NewBlockID(), Kind: model.BlockText, Text: " \t "},
	}
	entities.submissions[sub.ID] = s

	q := entities.questions[sub.QuestionID]
	q.Canonical.Blocks = []model.DocBlock{
		{ID: model.NewBlockID(), Kind: model.BlockText, Text: "Explain   photosynthesis. "},
	}
	entities.questions[sub.QuestionID] = q

	b := NewBuilder(entities, &memContexts{}, nil, "gpt-4o-mini")
	fc, err := b.Build(context.Background(), sub.ID)
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis converts light.", fc.SubmissionText)
	assert.Equal(t, "Explain photosynthesis.", fc.QuestionText)
	// Whitespace-only blocks do not count as text blocks.
	assert.Equal(t, 1, fc.TextBlockCount)
}

func TestBuildRejectsBrokenLinkage(t *testing.T) {
	entities, sub := fixture()
	broken := entities.submissions[sub.ID]
	broken.RubricID = model.NewRubricID()
	other := model.Rubric{ID: broken.RubricID, Items: []model.RubricItem{{ID: model.NewRubricItemID(), Weight: 1}}}
	entities.rubrics[other.ID] = other
	entities.submissions[sub.ID] = broken

	b := NewBuilder(entities, &memContexts{}, nil, "gpt-4o-mini")
	_, err := b.Build(context.Background(), sub.ID)
	assert.Error(t, err)
}

func TestBuildMissingSubmission(t *testing.T) {
	entities, _ := fixture()
	b := NewBuilder(entities, &memContexts{}, nil, "gpt-4o-mini")
	_, err := b.Build(context.Background(), model.NewSubmissionID())
	assert.Error(t, err)
}

func TestBuildIsIdempotent(t *testing.T) {
	entities, sub := fixture()
	contexts := &memContexts{}
	b := NewBuilder(entities, contexts, nil, "gpt-4o-mini")

	first, err := b.Build(context.Background(), sub.ID)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), sub.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, contexts.puts, 1)
}
