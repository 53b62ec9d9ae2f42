package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-api-social/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// feedColumns is the projection shared by the feed and single-post lookups.
const feedColumns = `posts.id AS post_id, posts.title, posts.content, posts.created_at,
	posts.updated_at, posts.user_id, users.username, users.profile_picture, posts.image,
	COALESCE(lc.cnt, 0) AS likes, COALESCE(cc.cnt, 0) AS comments`

var feedOrder = map[string]string{
	domain.SortRecent:   "COALESCE(posts.updated_at, posts.created_at) DESC, posts.id DESC",
	domain.SortLikes:    "likes DESC, posts.id DESC",
	domain.SortComments: "comments DESC, posts.id DESC",
}

type PostRepo struct{ db *gorm.DB }

func NewPostRepo(db *gorm.DB) *PostRepo { return &PostRepo{db: db} }

// CreateWithinQuota inserts p unless its author already has limit posts
// created at or after since. A limit ≤ 0 means unlimited. The count and the
// insert share one transaction; on Postgres the author row is locked so two
// concurrent creates cannot both slip under the limit.
func (r *PostRepo) CreateWithinQuota(ctx context.Context, p *domain.Post, since time.Time, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if limit > 0 {
			if tx.Dialector.Name() == "postgres" {
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					Select("id").First(&domain.User{}, p.UserID).Error; err != nil {
					return notFound(err, "user")
				}
			}
			n, err := countSince(tx, p.UserID, since)
			if err != nil {
				return err
			}
			if n >= int64(limit) {
				return fmt.Errorf("daily post limit reached: %w", domain.ErrQuotaExceeded)
			}
		}
		return tx.Create(p).Error
	})
}

func (r *PostRepo) Get(ctx context.Context, postID int64) (*domain.Post, error) {
	var p domain.Post
	if err := r.db.WithContext(ctx).First(&p, postID).Error; err != nil {
		return nil, notFound(err, "post")
	}
	return &p, nil
}

func (r *PostRepo) Update(ctx context.Context, postID int64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", postID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes the post together with its likes and comments atomically.
func (r *PostRepo) Delete(ctx context.Context, postID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deletePost(tx, postID)
	})
}

// CountSince counts the author's posts created at or after since.
func (r *PostRepo) CountSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return countSince(r.db.WithContext(ctx), userID, since)
}

// Feed returns one page of posts joined with author and aggregated counts.
func (r *PostRepo) Feed(ctx context.Context, q domain.FeedQuery) ([]domain.FeedItem, error) {
	order, ok := feedOrder[q.SortBy]
	if !ok {
		return nil, fmt.Errorf("unknown sort_by %q: %w", q.SortBy, domain.ErrBadRequest)
	}
	tx := r.feedBase(ctx)
	if q.Search != "" {
		tx = tx.Where(r.titleMatch(), "%"+escapeLike(q.Search)+"%")
	}
	if q.UserID != nil {
		tx = tx.Where("posts.user_id = ?", *q.UserID)
	}
	items := make([]domain.FeedItem, 0, q.Limit)
	err := tx.Order(order).Offset(q.Offset).Limit(q.Limit).Scan(&items).Error
	return items, err
}

// Item returns a single post in feed shape.
func (r *PostRepo) Item(ctx context.Context, postID int64) (*domain.FeedItem, error) {
	var items []domain.FeedItem
	if err := r.feedBase(ctx).Where("posts.id = ?", postID).Limit(1).Scan(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	return &items[0], nil
}

// feedBase builds the author join plus the like and comment aggregates. The
// counts are pre-grouped per post so neither join multiplies the other.
func (r *PostRepo) feedBase(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	likeAgg := db.Model(&domain.Like{}).Select("post_id, COUNT(*) AS cnt").Group("post_id")
	commentAgg := db.Model(&domain.Comment{}).Select("post_id, COUNT(*) AS cnt").Group("post_id")
	return db.Table("posts").
		Select(feedColumns).
		Joins("JOIN users ON users.id = posts.user_id").
		Joins("LEFT JOIN (?) AS lc ON lc.post_id = posts.id", likeAgg).
		Joins("LEFT JOIN (?) AS cc ON cc.post_id = posts.id", commentAgg)
}

func (r *PostRepo) titleMatch() string {
	if r.db.Dialector.Name() == "postgres" {
		return `posts.title ILIKE ? ESCAPE '\'`
	}
	return `LOWER(posts.title) LIKE LOWER(?) ESCAPE '\'`
}

func countSince(tx *gorm.DB, userID int64, since time.Time) (int64, error) {
	var n int64
	err := tx.Model(&domain.Post{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}

func deletePost(tx *gorm.DB, postID int64) error {
	if err := tx.Where("post_id = ?", postID).Delete(&domain.Like{}).Error; err != nil {
		return err
	}
	if err := deleteComments(tx, "post_id = ?", postID); err != nil {
		return err
	}
	res := tx.Delete(&domain.Post{}, postID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
