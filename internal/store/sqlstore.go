package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/model"
)

// SQLStore persists records as JSON payloads with indexed key columns for
// filtering. Works against both sqlite and postgres; placeholders are $1
// style, which modernc sqlite accepts.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) upsert(ctx context.Context, table, id string, keys map[string]any, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	switch table {
	case "rubrics":
		_, err = s.db.ExecContext(ctx, `INSERT INTO rubrics (id,course,assignment,version,payload,created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET payload=EXCLUDED.payload, version=EXCLUDED.version`,
			id, keys["course"], keys["assignment"], keys["version"], string(payload), time.Now().Unix())
	case "questions":
		_, err = s.db.ExecContext(ctx, `INSERT INTO questions (id,rubric_id,payload,created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET payload=EXCLUDED.payload`,
			id, keys["rubric_id"], string(payload), time.Now().Unix())
	case "submissions":
		_, err = s.db.ExecContext(ctx, `INSERT INTO submissions (id,rubric_id,question_id,student,payload,created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET payload=EXCLUDED.payload`,
			id, keys["rubric_id"], keys["question_id"], keys["student"], string(payload), time.Now().Unix())
	case "eval_results":
		_, err = s.db.ExecContext(ctx, `INSERT INTO eval_results (id,submission_id,rubric_id,total,payload,created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET payload=EXCLUDED.payload, total=EXCLUDED.total`,
			id, keys["submission_id"], keys["rubric_id"], keys["total"], string(payload), time.Now().Unix())
	case "fusion_contexts":
		_, err = s.db.ExecContext(ctx, `INSERT INTO fusion_contexts (id,submission_id,payload,created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET payload=EXCLUDED.payload`,
			id, keys["submission_id"], string(payload), time.Now().Unix())
	default:
		err = fmt.Errorf("unknown table %s", table)
	}
	return err
}

func (s *SQLStore) getPayload(ctx context.Context, table, id string, v any) error {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM `+table+` WHERE id=$1`, id)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
		}
		return err
	}
	return json.Unmarshal([]byte(payload), v)
}

func (s *SQLStore) PutRubric(ctx context.Context, r model.Rubric) error {
	return s.upsert(ctx, "rubrics", r.ID, map[string]any{
		"course": r.Course, "assignment": r.Assignment, "version": r.Version,
	}, r)
}

func (s *SQLStore) GetRubric(ctx context.Context, id string) (model.Rubric, error) {
	var r model.Rubric
	err := s.getPayload(ctx, "rubrics", id, &r)
	return r, err
}

func (s *SQLStore) ListRubrics(ctx context.Context, opts ListOpts) ([]model.Rubric, error) {
	opts = clampOpts(opts)
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM rubrics ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Rubric
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.Rubric
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutQuestion(ctx context.Context, q model.Question) error {
	return s.upsert(ctx, "questions", q.ID, map[string]any{"rubric_id": q.RubricID}, q)
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (model.Question, error) {
	var q model.Question
	err := s.getPayload(ctx, "questions", id, &q)
	return q, err
}

func (s *SQLStore) PutSubmission(ctx context.Context, sub model.Submission) error {
	return s.upsert(ctx, "submissions", sub.ID, map[string]any{
		"rubric_id": sub.RubricID, "question_id": sub.QuestionID, "student": sub.StudentHandle,
	}, sub)
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	var sub model.Submission
	err := s.getPayload(ctx, "submissions", id, &sub)
	return sub, err
}

func (s *SQLStore) ListSubmissions(ctx context.Context, rubricID string, opts ListOpts) ([]model.Submission, error) {
	opts = clampOpts(opts)
	q := `SELECT payload FROM submissions`
	args := []any{}
	if rubricID != "" {
		q += ` WHERE rubric_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
		args = append(args, rubricID, opts.Limit, opts.Offset)
	} else {
		q += ` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Submission
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sub model.Submission
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutResult(ctx context.Context, res model.EvalResult) error {
	return s.upsert(ctx, "eval_results", res.ID, map[string]any{
		"submission_id": res.SubmissionID, "rubric_id": res.RubricID, "total": res.Total,
	}, res)
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (model.EvalResult, error) {
	var res model.EvalResult
	err := s.getPayload(ctx, "eval_results", id, &res)
	return res, err
}

func (s *SQLStore) ListResults(ctx context.Context, submissionID string, opts ListOpts) ([]model.EvalResult, error) {
	opts = clampOpts(opts)
	q := `SELECT payload FROM eval_results`
	args := []any{}
	if submissionID != "" {
		q += ` WHERE submission_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
		args = append(args, submissionID, opts.Limit, opts.Offset)
	} else {
		q += ` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
		args = append(args, opts.Limit, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EvalResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var res model.EvalResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutContext(ctx context.Context, fc fusion.Context) error {
	return s.upsert(ctx, "fusion_contexts", fc.ID, map[string]any{"submission_id": fc.SubmissionID}, fc)
}

func (s *SQLStore) GetContext(ctx context.Context, id string) (fusion.Context, error) {
	var fc fusion.Context
	err := s.getPayload(ctx, "fusion_contexts", id, &fc)
	return fc, err
}
