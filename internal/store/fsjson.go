package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/model"
)

// FSStore keeps each record as one JSON file under base/category/id.json.
// Writes go through a temp file and rename so a crash never leaves a
// half-written record.
type FSStore struct {
	base string
	mu   sync.RWMutex
}

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) path(category, id string) string {
	return filepath.Join(s.base, category, filepath.Clean(id)+".json")
}

func (s *FSStore) put(category, id string, v any) error {
	if id == "" {
		return errors.New("empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := s.path(category, id)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (s *FSStore) get(category, id string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, err := os.ReadFile(s.path(category, id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", category, id, ErrNotFound)
		}
		return err
	}
	return json.Unmarshal(buf, v)
}

// listIDs returns every record id in a category, sorted for deterministic
// paging.
func (s *FSStore) listIDs(category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.base, category))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FSStore) PutRubric(_ context.Context, r model.Rubric) error {
	return s.put("rubrics", r.ID, r)
}

func (s *FSStore) GetRubric(_ context.Context, id string) (model.Rubric, error) {
	var r model.Rubric
	err := s.get("rubrics", id, &r)
	return r, err
}

func (s *FSStore) ListRubrics(ctx context.Context, opts ListOpts) ([]model.Rubric, error) {
	opts = clampOpts(opts)
	ids, err := s.listIDs("rubrics")
	if err != nil {
		return nil, err
	}
	var out []model.Rubric
	for _, id := range page(ids, opts) {
		r, err := s.GetRubric(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *FSStore) PutQuestion(_ context.Context, q model.Question) error {
	return s.put("questions", q.ID, q)
}

func (s *FSStore) GetQuestion(_ context.Context, id string) (model.Question, error) {
	var q model.Question
	err := s.get("questions", id, &q)
	return q, err
}

func (s *FSStore) PutSubmission(_ context.Context, sub model.Submission) error {
	return s.put("submissions", sub.ID, sub)
}

func (s *FSStore) GetSubmission(_ context.Context, id string) (model.Submission, error) {
	var sub model.Submission
	err := s.get("submissions", id, &sub)
	return sub, err
}

func (s *FSStore) ListSubmissions(ctx context.Context, rubricID string, opts ListOpts) ([]model.Submission, error) {
	opts = clampOpts(opts)
	ids, err := s.listIDs("submissions")
	if err != nil {
		return nil, err
	}
	var matched []model.Submission
	for _, id := range ids {
		sub, err := s.GetSubmission(ctx, id)
		if err != nil {
			return nil, err
		}
		if rubricID == "" || sub.RubricID == rubricID {
			matched = append(matched, sub)
		}
	}
	return pageSlice(matched, opts), nil
}

func (s *FSStore) PutResult(_ context.Context, res model.EvalResult) error {
	return s.put("results", res.ID, res)
}

func (s *FSStore) GetResult(_ context.Context, id string) (model.EvalResult, error) {
	var res model.EvalResult
	err := s.get("results", id, &res)
	return res, err
}

func (s *FSStore) ListResults(ctx context.Context, submissionID string, opts ListOpts) ([]model.EvalResult, error) {
	opts = clampOpts(opts)
	ids, err := s.listIDs("results")
	if err != nil {
		return nil, err
	}
	var matched []model.EvalResult
	for _, id := range ids {
		res, err := s.GetResult(ctx, id)
		if err != nil {
			return nil, err
		}
		if submissionID == "" || res.SubmissionID == submissionID {
			matched = append(matched, res)
		}
	}
	return pageSlice(matched, opts), nil
}

func (s *FSStore) PutContext(_ context.Context, fc fusion.Context) error {
	return s.put("contexts", fc.ID, fc)
}

func (s *FSStore) GetContext(_ context.Context, id string) (fusion.Context, error) {
	var fc fusion.Context
	err := s.get("contexts", id, &fc)
	return fc, err
}

func page(ids []string, opts ListOpts) []string {
	if opts.Offset >= len(ids) {
		return nil
	}
	ids = ids[opts.Offset:]
	if len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	return ids
}

func pageSlice[T any](items []T, opts ListOpts) []T {
	if opts.Offset >= len(items) {
		return nil
	}
	items = items[opts.Offset:]
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}
