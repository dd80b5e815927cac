package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/rubric"
	"github.com/evalmate/evalmate/internal/store"
)

type structureRubricReq struct {
	Course     string             `json:"course,omitempty"`
	Assignment string             `json:"assignment,omitempty"`
	Version    string             `json:"version,omitempty"`
	Document   model.CanonicalDoc `json:"document"`
}

// ensureDocIDs assigns identifiers to a document and its blocks when the
// client did not provide them.
func ensureDocIDs(doc *model.CanonicalDoc) {
	if doc.ID == "" {
		doc.ID = model.NewDocID()
	}
	for i := range doc.Blocks {
		if doc.Blocks[i].ID == "" {
			doc.Blocks[i].ID = model.NewBlockID()
		}
		if v := doc.Blocks[i].Visual; v != nil && v.ID == "" {
			v.ID = model.NewVisualID()
		}
	}
}

// POST /rubrics/structure
func StructureRubricHandler(engine *rubric.Engine, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req structureRubricReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Document.Blocks) == 0 {
			http.Error(w, "document with blocks required", http.StatusBadRequest)
			return
		}
		ensureDocIDs(&req.Document)
		if req.Version == "" {
			req.Version = "v1"
		}

		rb, err := engine.Structure(r.Context(), req.Document, req.Course, req.Assignment, req.Version)
		if err != nil {
			http.Error(w, "structure rubric: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err := st.PutRubric(r.Context(), rb); err != nil {
			http.Error(w, "save rubric: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rb)
	}
}

// GET /rubrics/{rubricID}
func GetRubricHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "rubricID"))
		if id == "" {
			http.Error(w, "rubricID required", http.StatusBadRequest)
			return
		}
		rb, err := st.GetRubric(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(rb)
	}
}

// GET /rubrics?limit=&offset=
func ListRubricsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rubrics, err := st.ListRubrics(r.Context(), listOpts(r))
		if err != nil {
			http.Error(w, "list rubrics: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if rubrics == nil {
			rubrics = []model.Rubric{}
		}
		_ = json.NewEncoder(w).Encode(rubrics)
	}
}

func listOpts(r *http.Request) store.ListOpts {
	var opts store.ListOpts
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		opts.Offset = v
	}
	return opts
}
