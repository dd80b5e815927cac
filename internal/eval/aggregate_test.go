package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evalmate/evalmate/internal/model"
)

func TestWeightedTotal(t *testing.T) {
	items := []model.ScoreItem{
		{RubricItemID: "a", Score: 90},
		{RubricItemID: "b", Score: 60},
		{RubricItemID: "c", Score: 100}, // no weight entry, contributes nothing
	}
	weights := map[string]float64{"a": 0.6, "b": 0.4}
	assert.InDelta(t, 78.0, WeightedTotal(items, weights), 0.001)
}

func TestWeightedTotalRounds(t *testing.T) {
	items := []model.ScoreItem{{RubricItemID: "a", Score: 66.666}}
	assert.InDelta(t, 66.67, WeightedTotal(items, map[string]float64{"a": 1}), 0.0001)
}

func TestSynthesizeFeedbackBandsAndIssues(t *testing.T) {
	titles := map[string]string{"a": "Content", "b": "Accuracy", "c": "Structure", "d": "Citations", "e": "Visuals"}
	items := []model.ScoreItem{
		{RubricItemID: "a", Score: 85, Gaps: "none"},
		{RubricItemID: "b", Score: 40, Gaps: "facts unchecked"},
		{RubricItemID: "c", Score: 30, Gaps: "no sections"},
		{RubricItemID: "d", Score: 20, Gaps: "no references"},
		{RubricItemID: "e", Score: 10, Gaps: "no figures"},
	}

	fb := SynthesizeFeedback(items, titles, 42.5)
	assert.Contains(t, fb, "in need of attention")
	assert.Contains(t, fb, "42.50")
	assert.Contains(t, fb, "Content")
	assert.Contains(t, fb, "facts unchecked")
	// Issues cap at three; the fourth weak criterion is omitted.
	assert.NotContains(t, fb, "no figures")
}

func TestSynthesizeFeedbackCapsStrengths(t *testing.T) {
	titles := map[string]string{"a": "Content", "b": "Accuracy", "c": "Structure", "d": "Citations", "e": "Visuals"}
	var items []model.ScoreItem
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		items = append(items, model.ScoreItem{RubricItemID: id, Score: 90})
	}

	fb := SynthesizeFeedback(items, titles, 90)
	assert.Contains(t, fb, "Strongest areas: Content, Accuracy, Structure.")
	assert.NotContains(t, fb, "Citations")
	assert.NotContains(t, fb, "Visuals")
}

func TestSynthesizeFeedbackBands(t *testing.T) {
	for _, tt := range []struct {
		total float64
		band  string
	}{
		{85, "excellent"},
		{72, "good"},
		{63, "satisfactory"},
		{40, "in need of attention"},
	} {
		fb := SynthesizeFeedback(nil, nil, tt.total)
		assert.Contains(t, fb, tt.band)
	}
}

func TestBackfillFeedbackClampsAndFills(t *testing.T) {
	score := 130.0
	item := BackfillFeedback(rawItem{Score: &score, Evidence: "quoted text"}, "item-1")

	assert.Equal(t, "item-1", item.RubricItemID)
	assert.Equal(t, 100.0, item.Score)
	assert.Equal(t, 100.0, item.CompletenessPercentage)
	assert.Equal(t, "quoted text", item.Evidence)
	for _, field := range []string{item.Evaluation, item.Strengths, item.Gaps, item.Guidance, item.Significance} {
		assert.NotEmpty(t, field)
	}
}

func TestFallbackItemSelfDescribing(t *testing.T) {
	item := FallbackItem("item-2", "the model response could not be parsed")
	assert.Zero(t, item.Score)
	assert.Zero(t, item.CompletenessPercentage)
	assert.Contains(t, item.Gaps, "could not be parsed")
	assert.NotEmpty(t, item.Evidence)
	assert.NotEmpty(t, item.Significance)
}
