package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalmate/evalmate/internal/audit"
)

type fakeEvents struct{ events []audit.Event }

func (f *fakeEvents) After(_ context.Context, offset int64, limit int) ([]audit.Event, error) {
	var out []audit.Event
	for _, e := range f.events {
		if e.Offset <= offset {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestListAuditEndpoint(t *testing.T) {
	src := &fakeEvents{events: []audit.Event{
		{Offset: 1, Type: audit.TypeRubricStructured, Key: "r1"},
		{Offset: 2, Type: audit.TypeSubmissionEvaluated, Key: "s1", Actor: "alice"},
	}}
	r := chi.NewRouter()
	r.Get("/audit", ListAuditHandler(src))

	var events []audit.Event
	rec := doJSON(t, r, http.MethodGet, "/audit", nil, &events)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, events, 2)

	rec = doJSON(t, r, http.MethodGet, "/audit?after=1", nil, &events)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].Key)

	rec = doJSON(t, r, http.MethodGet, "/audit?after=99", nil, &events)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, events)
}
