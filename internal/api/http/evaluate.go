package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/evalmate/evalmate/internal/auth/middleware"
	"github.com/evalmate/evalmate/internal/eval"
	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/store"
)

// POST /submissions/{submissionID}/evaluate?mode=structured|narrative
func EvaluateHandler(ev *eval.Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "submissionID"))
		if id == "" {
			http.Error(w, "submissionID required", http.StatusBadRequest)
			return
		}

		var res model.EvalResult
		var err error
		switch mode := r.URL.Query().Get("mode"); mode {
		case "", "structured":
			res, err = ev.Evaluate(r.Context(), id)
		case "narrative":
			res, err = ev.Narrative(r.Context(), id)
		default:
			http.Error(w, "unknown mode "+mode, http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "evaluate: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(res)
	}
}

// GET /results/{resultID}
func GetResultHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "resultID"))
		if id == "" {
			http.Error(w, "resultID required", http.StatusBadRequest)
			return
		}
		res, err := st.GetResult(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if !canViewResult(r, st, res) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// canViewResult lets a student read only results for submissions carrying
// their own handle; graders and admins pass the RBAC gate before reaching
// this check.
func canViewResult(r *http.Request, st store.Store, res model.EvalResult) bool {
	sub := authmw.SubjectFromContext(r.Context())
	if sub == "" {
		return true // unauthenticated paths are filtered by middleware
	}
	submission, err := st.GetSubmission(r.Context(), res.SubmissionID)
	if err != nil {
		return false
	}
	return submission.StudentHandle == "" || submission.StudentHandle == sub || !studentOnly(r)
}

// GET /submissions/{submissionID}/results
func ListResultsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "submissionID"))
		if id == "" {
			http.Error(w, "submissionID required", http.StatusBadRequest)
			return
		}
		results, err := st.ListResults(r.Context(), id, listOpts(r))
		if err != nil {
			http.Error(w, "list results: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if results == nil {
			results = []model.EvalResult{}
		}
		_ = json.NewEncoder(w).Encode(results)
	}
}

// GET /submissions/{submissionID}/fusion
func GetFusionHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "submissionID"))
		if id == "" {
			http.Error(w, "submissionID required", http.StatusBadRequest)
			return
		}
		fc, err := st.GetContext(r.Context(), fusion.ContextID(id))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(fc)
	}
}
