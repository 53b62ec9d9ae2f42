package domain

import "time"

// Membership tiers. The only permitted transition is basic → premium.
const (
	MembershipBasic   = "basic"
	MembershipPremium = "premium"
)

type User struct {
	ID             int64     `json:"user_id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"size:20;uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"not null"`
	Membership     string    `json:"membership" gorm:"size:16;not null;default:basic"`
	TOTPSecret     string    `json:"-" gorm:"column:totp_secret;size:64"`
	TOTPVerified   bool      `json:"totp_verified" gorm:"column:totp_verified;not null;default:false"`
	EmailVerified  bool      `json:"email_verified" gorm:"not null;default:false"`
	ProfilePicture *string   `json:"profile_picture"`
	Bio            string    `json:"bio" gorm:"size:200"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) IsPremium() bool { return u.Membership == MembershipPremium }

type SignupRequest struct {
	Email    string `json:"email" validate:"email_shape"`
	Username string `json:"username" validate:"username"`
	Password string `json:"password" validate:"strong_password,password_len"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitnil,username"`
	Bio      *string `json:"bio" validate:"omitnil,max=200"`
}

// Profile is the self-view of an account returned by GET /profile.
type Profile struct {
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Bio            string    `json:"bio"`
	ProfilePicture *string   `json:"profile_picture"`
	Membership     string    `json:"membership"`
	TOTPVerified   bool      `json:"totp_verified"`
	EmailVerified  bool      `json:"email_verified"`
	CreatedAt      time.Time `json:"created_at"`
	PostsToday     int64     `json:"posts_today"`
	DailyLimit     int       `json:"daily_limit"` // -1 means unlimited
}
