package http

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evalmate/evalmate/internal/storage"
)

// MountAssets wires blob upload/download for submission source files
// (scanned pages, figures referenced by visual blocks).
func MountAssets(r chi.Router, bs storage.BlobStore) {
	// POST /assets/{submissionID}
	r.Post("/{submissionID}", func(w http.ResponseWriter, r *http.Request) {
		submissionID := chi.URLParam(r, "submissionID")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := path.Base(hdr.Filename)
		if name == "" || name == "." || name == "/" {
			name = "upload.bin"
		}
		key := "submissions/" + submissionID + "/" + name
		if _, err := bs.Put(key, f); err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"key": key})
	})

	// GET /assets/*   -> returns the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		key = strings.TrimPrefix(key, "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found: "+err.Error(), http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	})
}
