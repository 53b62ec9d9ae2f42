package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/observability/metrics"
)

// Column names used in partial update maps.
const (
	fieldTitle    = "title"
	fieldContent  = "content"
	fieldImage    = "image"
	fieldEditedAt = "updated_at"
)

const maxTitleLen = 150

type CreateInput struct {
	UserID  int64
	Title   string
	Content string
	Image   *domain.ImageUpload
}

type EditInput struct {
	PostID  int64
	UserID  int64
	Title   string
	Content string
	Image   *domain.ImageUpload
}

type Service interface {
	Feed(ctx context.Context, q domain.FeedQuery) (*domain.FeedPage, error)
	Detail(ctx context.Context, postID, viewerID int64) (*domain.PostDetail, error)
	Create(ctx context.Context, in CreateInput) (*domain.Post, error)
	Edit(ctx context.Context, in EditInput) (*domain.Post, error)
	Delete(ctx context.Context, postID, requesterID int64) error
	ToggleLike(ctx context.Context, postID, viewerID int64) (*domain.LikeResult, error)
	CountToday(ctx context.Context, userID int64) (int64, error)
	DailyLimit(u *domain.User) int
}

type postStore interface {
	CreateWithinQuota(ctx context.Context, p *domain.Post, since time.Time, limit int) error
	Get(ctx context.Context, postID int64) (*domain.Post, error)
	Update(ctx context.Context, postID int64, updates map[string]interface{}) error
	Delete(ctx context.Context, postID int64) error
	CountSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	Feed(ctx context.Context, q domain.FeedQuery) ([]domain.FeedItem, error)
	Item(ctx context.Context, postID int64) (*domain.FeedItem, error)
}

type likeStore interface {
	Toggle(ctx context.Context, userID, postID int64) (*domain.LikeResult, error)
	LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) ([]int64, error)
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
}

type imageStore interface {
	Save(ctx context.Context, kind string, userID int64, up domain.ImageUpload) (*domain.StoredImage, error)
	Remove(ctx context.Context, ref string) error
}

type service struct {
	posts      postStore
	likes      likeStore
	users      userStore
	images     imageStore
	dailyLimit int
	now        func() time.Time
}

type ServiceDeps struct {
	PostRepo   postStore
	LikeRepo   likeStore
	UserRepo   userStore
	Images     imageStore
	DailyLimit int // posts per UTC day for basic members; ≤0 disables the cap
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		posts:      deps.PostRepo,
		likes:      deps.LikeRepo,
		users:      deps.UserRepo,
		images:     deps.Images,
		dailyLimit: deps.DailyLimit,
		now:        now,
	}
}

// NormalizeFeedQuery applies defaults and bounds to a client query.
func NormalizeFeedQuery(q domain.FeedQuery) domain.FeedQuery {
	if q.SortBy == "" {
		q.SortBy = domain.SortRecent
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	switch {
	case q.Limit == 0:
		q.Limit = domain.DefaultFeedLimit
	case q.Limit < 1:
		q.Limit = 1
	case q.Limit > domain.MaxFeedLimit:
		q.Limit = domain.MaxFeedLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (s *service) Feed(ctx context.Context, q domain.FeedQuery) (*domain.FeedPage, error) {
	q = NormalizeFeedQuery(q)
	items, err := s.posts.Feed(ctx, q)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.PostID
	}
	liked, err := s.likes.LikedPostIDs(ctx, q.ViewerID, ids)
	if err != nil {
		return nil, err
	}

	return &domain.FeedPage{
		Posts:        items,
		Offset:       q.Offset,
		Limit:        q.Limit,
		HasMore:      len(items) == q.Limit,
		LikedPostIDs: liked,
	}, nil
}

func (s *service) Detail(ctx context.Context, postID, viewerID int64) (*domain.PostDetail, error) {
	item, err := s.posts.Item(ctx, postID)
	if err != nil {
		return nil, err
	}
	liked, err := s.likes.LikedPostIDs(ctx, viewerID, []int64{postID})
	if err != nil {
		return nil, err
	}
	return &domain.PostDetail{FeedItem: *item, Liked: len(liked) > 0}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*domain.Post, error) {
	title, content, err := cleanFields(in.Title, in.Content)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	limit := s.DailyLimit(u)
	since := startOfDayUTC(s.now())
	if limit > 0 {
		n, err := s.posts.CountSince(ctx, u.ID, since)
		if err != nil {
			return nil, err
		}
		if n >= int64(limit) {
			return nil, fmt.Errorf("daily post limit reached: %w", domain.ErrQuotaExceeded)
		}
	}

	p := &domain.Post{UserID: u.ID, Title: title, Content: content}
	var img *domain.StoredImage
	if in.Image != nil {
		img, err = s.images.Save(ctx, domain.ImagePost, u.ID, *in.Image)
		if err != nil {
			return nil, err
		}
		p.Image = &img.URL
	}

	if err := s.posts.CreateWithinQuota(ctx, p, since, limit); err != nil {
		if img != nil {
			s.discard(ctx, img.URL)
		}
		return nil, err
	}
	metrics.PostsCreatedTotal.Inc()
	return p, nil
}

func (s *service) Edit(ctx context.Context, in EditInput) (*domain.Post, error) {
	title, content, err := cleanFields(in.Title, in.Content)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.Get(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if p.UserID != in.UserID {
		return nil, fmt.Errorf("not the author of this post: %w", domain.ErrForbidden)
	}

	updates := map[string]interface{}{
		fieldTitle:    title,
		fieldContent:  content,
		fieldEditedAt: s.now().UTC(),
	}
	var img *domain.StoredImage
	if in.Image != nil {
		img, err = s.images.Save(ctx, domain.ImagePost, in.UserID, *in.Image)
		if err != nil {
			return nil, err
		}
		updates[fieldImage] = img.URL
	}
	if err := s.posts.Update(ctx, p.ID, updates); err != nil {
		if img != nil {
			s.discard(ctx, img.URL)
		}
		return nil, err
	}
	if img != nil && p.Image != nil {
		s.discard(ctx, *p.Image)
	}
	return s.posts.Get(ctx, p.ID)
}

func (s *service) Delete(ctx context.Context, postID, requesterID int64) error {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if p.UserID != requesterID {
		return fmt.Errorf("not the author of this post: %w", domain.ErrForbidden)
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	if p.Image != nil {
		s.discard(ctx, *p.Image)
	}
	return nil
}

func (s *service) ToggleLike(ctx context.Context, postID, viewerID int64) (*domain.LikeResult, error) {
	res, err := s.likes.Toggle(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	action := "unlike"
	if res.Liked {
		action = "like"
	}
	metrics.LikesToggledTotal.WithLabelValues(action).Inc()
	return res, nil
}

// CountToday counts the user's posts since the current UTC midnight.
func (s *service) CountToday(ctx context.Context, userID int64) (int64, error) {
	return s.posts.CountSince(ctx, userID, startOfDayUTC(s.now()))
}

// DailyLimit is the per-day post cap for u; 0 means unlimited.
func (s *service) DailyLimit(u *domain.User) int {
	if u.IsPremium() || s.dailyLimit <= 0 {
		return 0
	}
	return s.dailyLimit
}

func (s *service) discard(ctx context.Context, ref string) {
	if err := s.images.Remove(ctx, ref); err != nil {
		slog.WarnContext(ctx, "image cleanup failed", "ref", ref, "err", err)
	}
}

func cleanFields(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return "", "", fmt.Errorf("Title and content are required: %w", domain.ErrBadRequest)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", "", fmt.Errorf("Title must be at most 150 characters: %w", domain.ErrBadRequest)
	}
	return title, content, nil
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
