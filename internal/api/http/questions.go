package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/store"
)

type createQuestionReq struct {
	Title    string             `json:"title"`
	RubricID string             `json:"rubric_id"`
	Document model.CanonicalDoc `json:"document"`
}

// POST /questions
func CreateQuestionHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuestionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.RubricID == "" {
			http.Error(w, "rubric_id required", http.StatusBadRequest)
			return
		}
		if _, err := st.GetRubric(r.Context(), req.RubricID); err != nil {
			writeStoreError(w, err)
			return
		}
		ensureDocIDs(&req.Document)

		q := model.Question{
			ID:        model.NewQuestionID(),
			Title:     req.Title,
			Canonical: req.Document,
			RubricID:  req.RubricID,
		}
		if err := st.PutQuestion(r.Context(), q); err != nil {
			http.Error(w, "save question: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(q)
	}
}

// GET /questions/{questionID}
func GetQuestionHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "questionID"))
		if id == "" {
			http.Error(w, "questionID required", http.StatusBadRequest)
			return
		}
		q, err := st.GetQuestion(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(q)
	}
}
