package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/evalmate/evalmate/internal/audit"
)

// EventSource lists append-only audit events after a given offset.
type EventSource interface {
	After(ctx context.Context, offset int64, limit int) ([]audit.Event, error)
}

// GET /audit?after=&limit=
func ListAuditHandler(src EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if v, err := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64); err == nil {
			after = v
		}
		limit := 0
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
			limit = v
		}
		events, err := src.After(r.Context(), after, limit)
		if err != nil {
			http.Error(w, "list audit events: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []audit.Event{}
		}
		_ = json.NewEncoder(w).Encode(events)
	}
}
