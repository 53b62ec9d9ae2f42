package domain

import "io"

// Image kinds double as storage prefixes and public URL segments.
const (
	ImagePost    = "post_uploads"
	ImageComment = "comment_uploads"
	ImageProfile = "profile_pictures"
)

// StoredImage describes an uploaded image after validation and persistence.
type StoredImage struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Object      string `json:"object"`
	URL         string `json:"url"` // public reference stored on the owning row
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
}

// ImageUpload is an image received from a client before validation.
type ImageUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}
