package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-api-social/internal/domain"
)

type CreateInput struct {
	PostID   int64
	UserID   int64
	Content  string
	ParentID *int64
	Image    *domain.ImageUpload
}

// Listing is a post's comments both flat and grouped into threads.
type Listing struct {
	Comments []domain.Comment       `json:"comments"`
	Threads  []domain.CommentThread `json:"threads"`
}

type Service interface {
	ListByPost(ctx context.Context, postID int64) (*Listing, error)
	Create(ctx context.Context, in CreateInput) (*domain.Comment, error)
	Delete(ctx context.Context, commentID, requesterID int64) error
}

type commentStore interface {
	Create(ctx context.Context, c *domain.Comment) error
	Get(ctx context.Context, commentID int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
	Delete(ctx context.Context, commentID int64) error
}

type postStore interface {
	Get(ctx context.Context, postID int64) (*domain.Post, error)
}

type imageStore interface {
	Save(ctx context.Context, kind string, userID int64, up domain.ImageUpload) (*domain.StoredImage, error)
	Remove(ctx context.Context, ref string) error
}

type service struct {
	comments commentStore
	posts    postStore
	images   imageStore
}

type ServiceDeps struct {
	CommentRepo commentStore
	PostRepo    postStore
	Images      imageStore
}

func NewService(deps ServiceDeps) Service {
	return &service{comments: deps.CommentRepo, posts: deps.PostRepo, images: deps.Images}
}

func (s *service) ListByPost(ctx context.Context, postID int64) (*Listing, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	flat, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &Listing{Comments: flat, Threads: BuildThreads(flat)}, nil
}

// BuildThreads groups flat comments under their top-level ancestor in one
// pass, keeping input order. Replies whose parent is absent are dropped.
func BuildThreads(flat []domain.Comment) []domain.CommentThread {
	threads := make([]domain.CommentThread, 0, len(flat))
	index := make(map[int64]int, len(flat))
	for _, c := range flat {
		if c.ParentID == nil {
			index[c.ID] = len(threads)
			threads = append(threads, domain.CommentThread{Comment: c, Replies: []domain.Comment{}})
		}
	}
	for _, c := range flat {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads
}

func (s *service) Create(ctx context.Context, in CreateInput) (*domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.Image == nil {
		return nil, fmt.Errorf("Comment content is required: %w", domain.ErrBadRequest)
	}
	if _, err := s.posts.Get(ctx, in.PostID); err != nil {
		return nil, err
	}

	c := &domain.Comment{PostID: in.PostID, UserID: in.UserID, Content: content}
	if in.ParentID != nil {
		parentID, err := s.threadRoot(ctx, *in.ParentID, in.PostID)
		if err != nil {
			return nil, err
		}
		c.ParentID = &parentID
	}

	var img *domain.StoredImage
	if in.Image != nil {
		var err error
		img, err = s.images.Save(ctx, domain.ImageComment, in.UserID, *in.Image)
		if err != nil {
			return nil, err
		}
		c.Image = &img.URL
	}
	if err := s.comments.Create(ctx, c); err != nil {
		if img != nil {
			s.discard(ctx, img.URL)
		}
		return nil, err
	}
	return c, nil
}

// threadRoot resolves the comment a reply should hang under. Threads are one
// level deep, so a reply to a reply attaches to the top-level comment.
func (s *service) threadRoot(ctx context.Context, parentID, postID int64) (int64, error) {
	parent, err := s.comments.Get(ctx, parentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("Parent comment not found: %w", domain.ErrBadRequest)
		}
		return 0, err
	}
	if parent.PostID != postID {
		return 0, fmt.Errorf("Parent comment belongs to another post: %w", domain.ErrBadRequest)
	}
	if parent.ParentID != nil {
		return *parent.ParentID, nil
	}
	return parent.ID, nil
}

func (s *service) Delete(ctx context.Context, commentID, requesterID int64) error {
	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if c.UserID != requesterID {
		return fmt.Errorf("not the author of this comment: %w", domain.ErrForbidden)
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	if c.Image != nil {
		s.discard(ctx, *c.Image)
	}
	return nil
}

func (s *service) discard(ctx context.Context, ref string) {
	if err := s.images.Remove(ctx, ref); err != nil {
		slog.WarnContext(ctx, "image cleanup failed", "ref", ref, "err", err)
	}
}
