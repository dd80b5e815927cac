package http

import (
	"errors"
	"net/http"

	"github.com/evalmate/evalmate/internal/rbac"
	"github.com/evalmate/evalmate/internal/store"
)

func studentOnly(r *http.Request) bool {
	return rbac.RoleFromContext(r.Context()) == "student"
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
