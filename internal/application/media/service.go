package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/pkg/id"
)

const MaxImageBytes = 5 << 20

var (
	allowedExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

	// Only these survive content sniffing; the stored extension follows the content.
	allowedMIME = map[string]string{"image/jpeg": ".jpg", "image/png": ".png"}

	filenameRe = regexp.MustCompile(`^[A-Za-z0-9_\-]+\.(png|jpg|jpeg|gif|webp)$`)

	// routes maps each image kind to the public path it is served under.
	routes = map[string]string{
		domain.ImagePost:    "/api/posts/" + domain.ImagePost,
		domain.ImageComment: "/api/comments/" + domain.ImageComment,
		domain.ImageProfile: "/api/profile/" + domain.ImageProfile,
	}

	namePrefix = map[string]string{
		domain.ImagePost:    "post",
		domain.ImageComment: "comment",
		domain.ImageProfile: "profile",
	}
)

type Service interface {
	Save(ctx context.Context, kind string, userID int64, up domain.ImageUpload) (*domain.StoredImage, error)
	Open(ctx context.Context, kind, filename string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, ref string) error
}

type objectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	store objectStore
}

func NewService(store objectStore) Service {
	return &service{store: store}
}

// Save validates an uploaded image and writes it to the object store.
func (s *service) Save(ctx context.Context, kind string, userID int64, up domain.ImageUpload) (*domain.StoredImage, error) {
	route, ok := routes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown image kind %q", kind)
	}
	if !allowedExts[strings.ToLower(filepath.Ext(up.Filename))] {
		return nil, fmt.Errorf("Invalid file type: must be png, jpg, jpeg, gif or webp: %w", domain.ErrBadRequest)
	}
	if up.Size > MaxImageBytes {
		return nil, fmt.Errorf("Image exceeds 5 MB limit: %w", domain.ErrBadRequest)
	}

	data, err := io.ReadAll(io.LimitReader(up.Content, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("Image exceeds 5 MB limit: %w", domain.ErrBadRequest)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("Empty image: %w", domain.ErrBadRequest)
	}

	mt := mimetype.Detect(data)
	ext, ok := allowedMIME[mt.String()]
	if !ok {
		return nil, fmt.Errorf("Invalid image content: %w", domain.ErrBadRequest)
	}

	name := fmt.Sprintf("%s_%d_%s%s", namePrefix[kind], userID, id.NewLower(), ext)
	key := path.Join(kind, name)
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String()); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return &domain.StoredImage{
		Kind:        kind,
		Name:        name,
		Object:      key,
		URL:         route + "/" + name,
		ContentType: mt.String(),
		Size:        int64(len(data)),
		Hash:        hex.EncodeToString(sum[:]),
	}, nil
}

// Open streams a stored image. filename must be a bare name with an image extension.
func (s *service) Open(ctx context.Context, kind, filename string) (io.ReadCloser, string, error) {
	if _, ok := routes[kind]; !ok {
		return nil, "", fmt.Errorf("unknown image kind: %w", domain.ErrNotFound)
	}
	if !filenameRe.MatchString(filename) {
		return nil, "", fmt.Errorf("Invalid filename: %w", domain.ErrBadRequest)
	}
	return s.store.Get(ctx, path.Join(kind, filename))
}

// Remove deletes the object behind a reference produced by Save.
func (s *service) Remove(ctx context.Context, ref string) error {
	key, ok := objectKey(ref)
	if !ok {
		return fmt.Errorf("unrecognised image reference %q", ref)
	}
	return s.store.Delete(ctx, key)
}

func objectKey(ref string) (string, bool) {
	dir, name := path.Split(ref)
	kind := path.Base(dir)
	route, ok := routes[kind]
	if !ok || !filenameRe.MatchString(name) || path.Clean(dir) != route {
		return "", false
	}
	return path.Join(kind, name), true
}
