package model

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the permitted deviation of a rubric's weight sum
// from 1.0.
const WeightTolerance = 0.01

// ValidateWeights checks that rubric item weights sum to 1.0 within tol.
// Pass tol <= 0 to use WeightTolerance.
func ValidateWeights(r Rubric, tol float64) error {
	if tol <= 0 {
		tol = WeightTolerance
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("rubric %s has no items", r.ID)
	}
	var sum float64
	for _, it := range r.Items {
		sum += it.Weight
	}
	if math.Abs(sum-1.0) > tol {
		return fmt.Errorf("rubric %s weights sum to %.4f, expected 1.0 ± %.2f", r.ID, sum, tol)
	}
	return nil
}

// ValidateEvidenceBlocks checks that every evidence block id referenced by
// the result exists among the submission's document blocks.
func ValidateEvidenceBlocks(res EvalResult, sub Submission) error {
	known := sub.Canonical.BlockIDs()
	var bad []string
	for _, item := range res.Items {
		for _, id := range item.EvidenceBlockIDs {
			if _, ok := known[id]; !ok {
				bad = append(bad, fmt.Sprintf("%s -> %s", item.RubricItemID, id))
			}
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("evidence references outside submission %s: %v", sub.ID, bad)
	}
	return nil
}

// ValidateResultIDs checks identifier grammar on every id carried by the
// result. A violation here points at an aggregation defect, not a flaky
// upstream call.
func ValidateResultIDs(res EvalResult) error {
	if res.ID != "" && !ValidID(res.ID) {
		return fmt.Errorf("invalid eval result id %q", res.ID)
	}
	if !ValidID(res.SubmissionID) {
		return fmt.Errorf("invalid submission id %q", res.SubmissionID)
	}
	if !ValidID(res.RubricID) {
		return fmt.Errorf("invalid rubric id %q", res.RubricID)
	}
	for i, item := range res.Items {
		if !ValidID(item.RubricItemID) {
			return fmt.Errorf("item %d: invalid rubric item id %q", i, item.RubricItemID)
		}
		for _, id := range item.EvidenceBlockIDs {
			if !ValidID(id) {
				return fmt.Errorf("item %d: invalid evidence block id %q", i, id)
			}
		}
	}
	return nil
}

// ValidateLinkage checks the foreign keys tying question and submission to
// the rubric. Mismatches are input errors and fail before any model call.
func ValidateLinkage(r Rubric, q Question, s Submission) error {
	if q.RubricID != r.ID {
		return fmt.Errorf("question %s is not linked to rubric %s", q.ID, r.ID)
	}
	if s.RubricID != r.ID {
		return fmt.Errorf("submission %s is not linked to rubric %s", s.ID, r.ID)
	}
	if s.QuestionID != q.ID {
		return fmt.Errorf("submission %s is not linked to question %s", s.ID, q.ID)
	}
	return nil
}
