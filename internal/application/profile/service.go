package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/pkg/validate"
)

const (
	fieldUsername       = "username"
	fieldBio            = "bio"
	fieldProfilePicture = "profile_picture"
)

// unlimited is reported as the daily limit of members without a post cap.
const unlimited = -1

type Service interface {
	Get(ctx context.Context, userID int64) (*domain.Profile, error)
	Update(ctx context.Context, userID int64, req domain.UpdateProfileRequest) (*domain.Profile, error)
	Delete(ctx context.Context, userID int64) error
	UploadPicture(ctx context.Context, userID int64, up domain.ImageUpload) (*domain.Profile, error)
	Posts(ctx context.Context, viewerID int64, q domain.FeedQuery) (*domain.FeedPage, error)
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, userID int64, updates map[string]interface{}) error
	Delete(ctx context.Context, userID int64) error
}

// posts is the slice of the post service a profile needs.
type posts interface {
	Feed(ctx context.Context, q domain.FeedQuery) (*domain.FeedPage, error)
	CountToday(ctx context.Context, userID int64) (int64, error)
	DailyLimit(u *domain.User) int
}

type imageStore interface {
	Save(ctx context.Context, kind string, userID int64, up domain.ImageUpload) (*domain.StoredImage, error)
	Remove(ctx context.Context, ref string) error
}

type service struct {
	users  userStore
	posts  posts
	images imageStore
}

type ServiceDeps struct {
	UserRepo userStore
	Posts    posts
	Images   imageStore
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.UserRepo, posts: deps.Posts, images: deps.Images}
}

func (s *service) Get(ctx context.Context, userID int64) (*domain.Profile, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, u)
}

func (s *service) build(ctx context.Context, u *domain.User) (*domain.Profile, error) {
	today, err := s.posts.CountToday(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	limit := s.posts.DailyLimit(u)
	if limit == 0 {
		limit = unlimited
	}
	return &domain.Profile{
		UserID:         u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Membership:     u.Membership,
		TOTPVerified:   u.TOTPVerified,
		EmailVerified:  u.EmailVerified,
		CreatedAt:      u.CreatedAt,
		PostsToday:     today,
		DailyLimit:     limit,
	}, nil
}

func (s *service) Update(ctx context.Context, userID int64, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	if req.Username == nil && req.Bio == nil {
		return nil, fmt.Errorf("No fields to update: %w", domain.ErrBadRequest)
	}
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if req.Bio != nil {
		trimmed := strings.TrimSpace(*req.Bio)
		req.Bio = &trimmed
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Username != nil && *req.Username != u.Username {
		taken, err := s.users.GetByUsername(ctx, *req.Username)
		switch {
		case err == nil && taken.ID != userID:
			return nil, fmt.Errorf("Username already taken: %w", domain.ErrConflict)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		updates[fieldUsername] = *req.Username
	}
	if req.Bio != nil {
		updates[fieldBio] = *req.Bio
	}
	if len(updates) > 0 {
		if err := s.users.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID)
}

// Delete removes the account. Owned rows go with it; image objects are
// left to bucket lifecycle rules except the profile picture.
func (s *service) Delete(ctx context.Context, userID int64) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	if u.ProfilePicture != nil {
		s.discard(ctx, *u.ProfilePicture)
	}
	slog.InfoContext(ctx, "account deleted", "user_id", userID)
	return nil
}

func (s *service) UploadPicture(ctx context.Context, userID int64, up domain.ImageUpload) (*domain.Profile, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	img, err := s.images.Save(ctx, domain.ImageProfile, userID, up)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{fieldProfilePicture: img.URL}); err != nil {
		s.discard(ctx, img.URL)
		return nil, err
	}
	if u.ProfilePicture != nil {
		s.discard(ctx, *u.ProfilePicture)
	}
	return s.Get(ctx, userID)
}

// Posts lists the viewer's own posts.
func (s *service) Posts(ctx context.Context, viewerID int64, q domain.FeedQuery) (*domain.FeedPage, error) {
	q.UserID = &viewerID
	q.ViewerID = viewerID
	return s.posts.Feed(ctx, q)
}

func (s *service) discard(ctx context.Context, ref string) {
	if err := s.images.Remove(ctx, ref); err != nil {
		slog.WarnContext(ctx, "image cleanup failed", "ref", ref, "err", err)
	}
}
