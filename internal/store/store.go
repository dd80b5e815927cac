package store

import (
	"context"
	"errors"

	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/model"
)

// ErrNotFound is returned for any lookup of a record that does not exist.
var ErrNotFound = errors.New("not found")

type ListOpts struct {
	Limit  int
	Offset int
}

// Store is the persistence surface for the evaluation pipeline. Both the
// filesystem and SQL backends implement it; records are written whole and
// never mutated in place.
type Store interface {
	PutRubric(ctx context.Context, r model.Rubric) error
	GetRubric(ctx context.Context, id string) (model.Rubric, error)
	ListRubrics(ctx context.Context, opts ListOpts) ([]model.Rubric, error)

	PutQuestion(ctx context.Context, q model.Question) error
	GetQuestion(ctx context.Context, id string) (model.Question, error)

	PutSubmission(ctx context.Context, s model.Submission) error
	GetSubmission(ctx context.Context, id string) (model.Submission, error)
	ListSubmissions(ctx context.Context, rubricID string, opts ListOpts) ([]model.Submission, error)

	PutResult(ctx context.Context, res model.EvalResult) error
	GetResult(ctx context.Context, id string) (model.EvalResult, error)
	ListResults(ctx context.Context, submissionID string, opts ListOpts) ([]model.EvalResult, error)

	PutContext(ctx context.Context, fc fusion.Context) error
	GetContext(ctx context.Context, id string) (fusion.Context, error)
}

func clampOpts(opts ListOpts) ListOpts {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
