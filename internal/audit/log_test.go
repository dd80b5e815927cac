package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalmate/evalmate/internal/db"
	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/store"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "audit.db")
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRepo(conn)
}

func TestAppendAndAfter(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, Event{Type: TypeRubricStructured, Key: "r1", DataJSON: "{}"}))
	require.NoError(t, repo.Append(ctx, Event{Type: TypeSubmissionEvaluated, Key: "s1", Actor: "alice", DataJSON: "{}"}))

	events, err := repo.After(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeRubricStructured, events[0].Type)
	assert.Equal(t, TypeSubmissionEvaluated, events[1].Type)
	assert.Greater(t, events[1].Offset, events[0].Offset)

	tail, err := repo.After(ctx, events[0].Offset, 10)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "s1", tail[0].Key)
}

func TestRecordingStoreAppendsEvents(t *testing.T) {
	repo := testRepo(t)
	inner, err := store.NewFSStore(t.TempDir())
	require.NoError(t, err)
	rs := NewRecordingStore(inner, repo)
	ctx := context.Background()

	rb := model.Rubric{
		ID:      model.NewRubricID(),
		Version: "v1",
		Items:   []model.RubricItem{{ID: model.NewRubricItemID(), Title: "Overall Quality", Weight: 1}},
	}
	require.NoError(t, rs.PutRubric(ctx, rb))

	res := model.EvalResult{
		ID:           model.NewEvalID(),
		SubmissionID: model.NewSubmissionID(),
		RubricID:     rb.ID,
		Total:        75,
		Metadata:     map[string]string{"mode": "structured", "student": "alice"},
	}
	require.NoError(t, rs.PutResult(ctx, res))

	events, err := repo.After(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeRubricStructured, events[0].Type)
	assert.Equal(t, rb.ID, events[0].Key)
	assert.Equal(t, TypeSubmissionEvaluated, events[1].Type)
	assert.Equal(t, res.SubmissionID, events[1].Key)
	assert.Equal(t, "alice", events[1].Actor)

	// Both records landed in the wrapped store.
	_, err = inner.GetRubric(ctx, rb.ID)
	require.NoError(t, err)
	_, err = inner.GetResult(ctx, res.ID)
	require.NoError(t, err)
}
