package handler

import (
	"net/http"

	"github.com/go-api-social/internal/application/profile"
	"github.com/go-api-social/internal/domain"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	svc     profile.Service
	cookies CookieConfig
}

func NewProfileHandler(svc profile.Service, cookies CookieConfig) *ProfileHandler {
	return &ProfileHandler{svc: svc, cookies: cookies}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{User: p})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Update(r.Context(), uid, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Message: "Profile updated successfully", User: p})
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), uid); err != nil {
		writeServiceError(w, r, err)
		return
	}
	clearSessionCookies(w, h.cookies.Secure)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Profile deleted successfully"})
}

func (h *ProfileHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		writeFormError(w, err)
		return
	}
	img, closeImg, err := formImage(r, "profile_picture")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImg()
	if img == nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	p, err := h.svc.UploadPicture(r.Context(), uid, *img)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Message: "Profile picture updated", User: p})
}

func (h *ProfileHandler) Posts(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	q, err := parseFeedQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameter")
		return
	}
	page, err := h.svc.Posts(r.Context(), uid, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
