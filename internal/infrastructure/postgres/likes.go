package postgres

import (
	"context"
	"fmt"

	"github.com/go-api-social/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepo struct{ db *gorm.DB }

func NewLikeRepo(db *gorm.DB) *LikeRepo { return &LikeRepo{db: db} }

// Toggle flips the viewer's like on a post and returns the fresh count.
// The delete-then-insert runs in one transaction and the insert is
// ON CONFLICT DO NOTHING against the (user_id, post_id) unique index, so two
// concurrent toggles can never leave more than one row for the pair.
func (r *LikeRepo) Toggle(ctx context.Context, userID, postID int64) (*domain.LikeResult, error) {
	var out domain.LikeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&domain.Post{}, postID).Error; err != nil {
			return notFound(err, "post")
		}
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&domain.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := domain.Like{UserID: userID, PostID: postID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				if !isUniqueViolation(err) {
					return fmt.Errorf("insert like: %w", err)
				}
			}
			out.Liked = true
		}
		return tx.Model(&domain.Like{}).Where("post_id = ?", postID).Count(&out.Likes).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LikeRepo) Count(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

// LikedPostIDs returns the subset of postIDs the user has liked.
func (r *LikeRepo) LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) ([]int64, error) {
	ids := make([]int64, 0, len(postIDs))
	if len(postIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Order("post_id DESC").
		Pluck("post_id", &ids).Error
	return ids, err
}
