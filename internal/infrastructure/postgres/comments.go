package postgres

import (
	"context"
	"fmt"

	"github.com/go-api-social/internal/domain"
	"gorm.io/gorm"
)

type CommentRepo struct{ db *gorm.DB }

func NewCommentRepo(db *gorm.DB) *CommentRepo { return &CommentRepo{db: db} }

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	return r.db.WithContext(ctx).Omit("Username").Create(c).Error
}

func (r *CommentRepo) Get(ctx context.Context, commentID int64) (*domain.Comment, error) {
	var c domain.Comment
	if err := r.db.WithContext(ctx).First(&c, commentID).Error; err != nil {
		return nil, notFound(err, "comment")
	}
	return &c, nil
}

// ListByPost returns the post's comments as flat rows, oldest first, with
// the author's username filled in.
func (r *CommentRepo) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	err := r.db.WithContext(ctx).
		Table("comments").
		Select("comments.*, users.username").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC, comments.id ASC").
		Scan(&comments).Error
	return comments, err
}

// Delete removes a comment and its replies.
func (r *CommentRepo) Delete(ctx context.Context, commentID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", commentID).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Comment{}, commentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("comment not found: %w", domain.ErrNotFound)
		}
		return nil
	})
}

// deleteComments removes the comments matching where, replies first so the
// parent_id foreign key never points at a deleted row.
func deleteComments(tx *gorm.DB, where string, args ...interface{}) error {
	var ids []int64
	if err := tx.Model(&domain.Comment{}).Where(where, args...).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("parent_id IN ?", ids).Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&domain.Comment{}).Error
}
