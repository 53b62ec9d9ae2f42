package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-api-social/internal/application/comment"
)

// CommentHandler handles threaded comments on posts.
type CommentHandler struct {
	svc comment.Service
}

func NewCommentHandler(svc comment.Service) *CommentHandler { return &CommentHandler{svc: svc} }

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "post_id")
	if !ok {
		return
	}
	l, err := h.svc.ListByPost(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	postID, ok := pathID(w, r, "post_id")
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		writeFormError(w, err)
		return
	}
	in := comment.CreateInput{PostID: postID, UserID: uid, Content: r.FormValue("content")}
	if s := strings.TrimSpace(r.FormValue("parent_id")); s != "" {
		parentID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		in.ParentID = &parentID
	}
	img, closeImg, err := formImage(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImg()
	in.Image = img

	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CommentEnvelope{Message: "Comment created", Comment: c})
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := viewerID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), commentID, uid); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Comment deleted"})
}
