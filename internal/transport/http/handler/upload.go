package handler

import (
	"errors"
	"net/http"

	"github.com/go-api-social/internal/application/media"
	"github.com/go-api-social/internal/domain"
)

// multipart bodies may carry one image plus a few text fields.
const maxMultipartMemory = media.MaxImageBytes + 1<<20

// parseForm accepts multipart or urlencoded bodies up to maxMultipartMemory.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartMemory)
	err := r.ParseMultipartForm(maxMultipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// writeFormError answers a failed parseForm.
func writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid form body")
}

// formImage returns the optional image in field. The returned close func is
// never nil.
func formImage(r *http.Request, field string) (*domain.ImageUpload, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	if hdr.Filename == "" {
		_ = f.Close()
		return nil, noop, nil
	}
	return &domain.ImageUpload{Filename: hdr.Filename, Size: hdr.Size, Content: f}, func() { _ = f.Close() }, nil
}
