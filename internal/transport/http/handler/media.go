package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-api-social/internal/application/media"
)

// MediaHandler streams stored images back to clients.
type MediaHandler struct {
	svc media.Service
}

func NewMediaHandler(svc media.Service) *MediaHandler { return &MediaHandler{svc: svc} }

// Serve returns a handler for images of the given kind, named by the
// {filename} route parameter.
func (h *MediaHandler) Serve(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, contentType, err := h.svc.Open(r.Context(), kind, chi.URLParam(r, "filename"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		defer rc.Close()
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = io.Copy(w, rc)
	}
}
