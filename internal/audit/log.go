package audit

import (
	"context"
	"database/sql"
	"time"
)

// Event is one append-only audit record: who did what to which entity.
type Event struct {
	Offset    int64
	Type      string // e.g. "rubric_structured", "submission_evaluated"
	Key       string // entity id the event is about
	Actor     string
	DataJSON  string
	CreatedAt int64
}

const (
	TypeRubricStructured    = "rubric_structured"
	TypeSubmissionEvaluated = "submission_evaluated"
)

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (typ, key, actor, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.Type, e.Key, e.Actor, e.DataJSON, time.Now().Unix())
	return err
}

// After returns up to limit events with an offset greater than the given
// one, oldest first.
func (r *Repo) After(ctx context.Context, offset int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT offset_id, typ, key, actor, data, created_at
		 FROM audit_log WHERE offset_id > $1 ORDER BY offset_id LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.Actor, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
