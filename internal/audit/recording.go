package audit

import (
	"context"
	"encoding/json"

	"github.com/chainguard-dev/clog"

	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/store"
)

// RecordingStore persists through the wrapped store and appends an audit
// event whenever a rubric is structured or an evaluation is stored. Append
// failures do not fail the save; the record is the source of truth, the
// log is advisory.
type RecordingStore struct {
	store.Store
	Repo *Repo
}

func NewRecordingStore(inner store.Store, repo *Repo) RecordingStore {
	return RecordingStore{Store: inner, Repo: repo}
}

func (s RecordingStore) PutRubric(ctx context.Context, r model.Rubric) error {
	if err := s.Store.PutRubric(ctx, r); err != nil {
		return err
	}
	summary, _ := json.Marshal(map[string]any{
		"rubric_id": r.ID,
		"version":   r.Version,
		"items":     len(r.Items),
	})
	s.append(ctx, Event{
		Type:     TypeRubricStructured,
		Key:      r.ID,
		DataJSON: string(summary),
	})
	return nil
}

func (s RecordingStore) PutResult(ctx context.Context, res model.EvalResult) error {
	if err := s.Store.PutResult(ctx, res); err != nil {
		return err
	}
	summary, _ := json.Marshal(map[string]any{
		"result_id":     res.ID,
		"submission_id": res.SubmissionID,
		"rubric_id":     res.RubricID,
		"total":         res.Total,
		"mode":          res.Metadata["mode"],
	})
	s.append(ctx, Event{
		Type:     TypeSubmissionEvaluated,
		Key:      res.SubmissionID,
		Actor:    res.Metadata["student"],
		DataJSON: string(summary),
	})
	return nil
}

func (s RecordingStore) append(ctx context.Context, e Event) {
	if err := s.Repo.Append(ctx, e); err != nil {
		clog.FromContext(ctx).Warn("audit append failed", "type", e.Type, "key", e.Key, "error", err)
	}
}
