package domain

import "time"

type Comment struct {
	ID        int64     `json:"comment_id" gorm:"primaryKey"`
	PostID    int64     `json:"post_id" gorm:"not null;index"`
	UserID    int64     `json:"user_id" gorm:"not null"`
	ParentID  *int64    `json:"parent_id" gorm:"index"`
	Content   string    `json:"content" gorm:"type:text"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username" gorm:"->;-:migration"`

	User    *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Replies []Comment `json:"-" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
}

// CommentThread is a top-level comment with its direct replies.
type CommentThread struct {
	Comment
	Replies []Comment `json:"replies"`
}
