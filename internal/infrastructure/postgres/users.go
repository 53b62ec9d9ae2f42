package postgres

import (
	"context"
	"fmt"

	"github.com/go-api-social/internal/domain"
	"gorm.io/gorm"
)

const colMembership = "membership"

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts u. A duplicate username or email surfaces as ErrConflict
// even when two signups race past the service-level existence checks.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email or username already in use: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// Update applies a partial update keyed by column name.
func (r *UserRepo) Update(ctx context.Context, userID int64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("username already taken: %w", domain.ErrConflict)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

// UpgradeMembership moves a basic member to premium. It reports whether this
// call performed the transition; repeating it is a no-op.
func (r *UserRepo) UpgradeMembership(ctx context.Context, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND membership = ?", userID, domain.MembershipBasic).
		Update(colMembership, domain.MembershipPremium)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.Get(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// Delete removes the account and everything it owns in one transaction.
func (r *UserRepo) Delete(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postIDs []int64
		if err := tx.Model(&domain.Post{}).Where("user_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.Like{}).Error; err != nil {
			return err
		}
		if err := deleteComments(tx, "user_id = ?", userID); err != nil {
			return err
		}
		for _, postID := range postIDs {
			if err := deletePost(tx, postID); err != nil {
				return err
			}
		}
		res := tx.Delete(&domain.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil
	})
}
