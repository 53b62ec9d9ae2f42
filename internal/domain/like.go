package domain

import "time"

// Like is a (user, post) join row; the pair is unique at the storage layer.
type Like struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_likes_user_post,priority:1"`
	PostID    int64     `gorm:"not null;uniqueIndex:uq_likes_user_post,priority:2;index"`
	CreatedAt time.Time
	User      *User `gorm:"constraint:OnDelete:CASCADE"`
}
