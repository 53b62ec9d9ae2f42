package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-api-social/internal/application/post"
	"github.com/go-api-social/internal/domain"
)

// PostHandler handles feed, post CRUD and likes.
type PostHandler struct {
	svc post.Service
}

func NewPostHandler(svc post.Service) *PostHandler { return &PostHandler{svc: svc} }

func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	q, err := parseFeedQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameter")
		return
	}
	q.ViewerID = uid
	if s := r.URL.Query().Get("user_id"); s != "" {
		author, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid query parameter")
			return
		}
		q.UserID = &author
	}
	page, err := h.svc.Feed(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PostHandler) Detail(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.Detail(r.Context(), postID, uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		writeFormError(w, err)
		return
	}
	img, closeImg, err := formImage(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImg()

	p, err := h.svc.Create(r.Context(), post.CreateInput{
		UserID:  uid,
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
		Image:   img,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PostEnvelope{Message: "Post created successfully", Post: p})
}

func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		writeFormError(w, err)
		return
	}
	img, closeImg, err := formImage(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImg()

	p, err := h.svc.Edit(r.Context(), post.EditInput{
		PostID:  postID,
		UserID:  uid,
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
		Image:   img,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostEnvelope{Message: "Post updated successfully", Post: p})
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), postID, uid); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Post deleted successfully"})
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.ToggleLike(r.Context(), postID, uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseFeedQuery reads sort_by, offset, limit and search. Bounds are applied
// by the service.
func parseFeedQuery(r *http.Request) (domain.FeedQuery, error) {
	v := r.URL.Query()
	q := domain.FeedQuery{SortBy: v.Get("sort_by"), Search: v.Get("search")}
	var err error
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	return q, nil
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
