package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/evalmate/evalmate/internal/auth/middleware"
	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/store"
)

type createSubmissionReq struct {
	StudentHandle string             `json:"student_handle,omitempty"`
	RubricID      string             `json:"rubric_id"`
	QuestionID    string             `json:"question_id"`
	Document      model.CanonicalDoc `json:"document"`
}

// POST /submissions
func CreateSubmissionHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSubmissionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.RubricID == "" || req.QuestionID == "" {
			http.Error(w, "rubric_id and question_id required", http.StatusBadRequest)
			return
		}
		if len(req.Document.Blocks) == 0 {
			http.Error(w, "document with blocks required", http.StatusBadRequest)
			return
		}

		rb, err := st.GetRubric(r.Context(), req.RubricID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		q, err := st.GetQuestion(r.Context(), req.QuestionID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		ensureDocIDs(&req.Document)

		handle := req.StudentHandle
		if handle == "" {
			handle = authmw.SubjectFromContext(r.Context())
		}
		sub := model.Submission{
			ID:            model.NewSubmissionID(),
			StudentHandle: handle,
			Canonical:     req.Document,
			RubricID:      rb.ID,
			QuestionID:    q.ID,
		}
		if err := model.ValidateLinkage(rb, q, sub); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err := st.PutSubmission(r.Context(), sub); err != nil {
			http.Error(w, "save submission: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sub)
	}
}

// GET /submissions/{submissionID}
func GetSubmissionHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "submissionID"))
		if id == "" {
			http.Error(w, "submissionID required", http.StatusBadRequest)
			return
		}
		sub, err := st.GetSubmission(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	}
}

// GET /submissions?rubric_id=&limit=&offset=
func ListSubmissionsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := st.ListSubmissions(r.Context(), r.URL.Query().Get("rubric_id"), listOpts(r))
		if err != nil {
			http.Error(w, "list submissions: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if subs == nil {
			subs = []model.Submission{}
		}
		_ = json.NewEncoder(w).Encode(subs)
	}
}
