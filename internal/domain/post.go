package domain

import "time"

type Post struct {
	ID        int64      `json:"post_id" gorm:"primaryKey"`
	UserID    int64      `json:"user_id" gorm:"not null;index:idx_posts_user_created,priority:1"`
	Title     string     `json:"title" gorm:"size:150;not null"`
	Content   string     `json:"content" gorm:"type:text;not null"`
	Image     *string    `json:"image"`
	CreatedAt time.Time  `json:"created_at" gorm:"index:idx_posts_user_created,priority:2"`
	EditedAt  *time.Time `json:"updated_at" gorm:"column:updated_at"`

	User     *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Likes    []Like    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Comments []Comment `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// Feed sort keys.
const (
	SortRecent   = "recent"
	SortLikes    = "likes"
	SortComments = "comments"
)

const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 50
)

// FeedQuery describes one page of the post listing.
type FeedQuery struct {
	SortBy   string
	Offset   int
	Limit    int
	Search   string
	UserID   *int64 // author filter
	ViewerID int64
}

// FeedItem is a post joined with its author and aggregated counts.
type FeedItem struct {
	PostID         int64      `json:"post_id" gorm:"column:post_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
	UserID         int64      `json:"user_id"`
	Username       string     `json:"username"`
	ProfilePicture *string    `json:"profile_picture"`
	Image          *string    `json:"image"`
	Likes          int64      `json:"likes"`
	Comments       int64      `json:"comments"`
}

type FeedPage struct {
	Posts        []FeedItem `json:"posts"`
	Offset       int        `json:"offset"`
	Limit        int        `json:"limit"`
	HasMore      bool       `json:"has_more"`
	LikedPostIDs []int64    `json:"liked_post_ids"`
}

type PostDetail struct {
	FeedItem
	Liked bool `json:"liked"`
}

type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}
