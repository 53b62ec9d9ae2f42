package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/observability/metrics"
	pkgtoken "github.com/go-api-social/internal/pkg/token"
)

// Column names used in partial update maps.
const (
	fieldTOTPVerified  = "totp_verified"
	fieldEmailVerified = "email_verified"
)

const verificationSubject = "Verify Your Email"

// TOTPSetup is either an enrolment URI or a notice that enrolment is done.
type TOTPSetup struct {
	AlreadyVerified bool   `json:"already_verified,omitempty"`
	Message         string `json:"message,omitempty"`
	ProvisioningURI string `json:"provisioning_uri,omitempty"`
}

type Service interface {
	TOTPSetup(ctx context.Context, userID int64) (*TOTPSetup, error)
	VerifyTOTP(ctx context.Context, userID int64, code string) (accessToken string, err error)
	SendVerificationEmail(ctx context.Context, u *domain.User) error
	VerifyEmail(ctx context.Context, token, salt string) (*domain.User, error)
	ResendVerification(ctx context.Context, email string) error
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID int64, updates map[string]interface{}) error
}

type authenticator interface {
	ProvisioningURI(secret, account string) string
	Validate(code, secret string) bool
}

type codeGuard interface {
	Claim(ctx context.Context, userID int64, code string) (bool, error)
}

type accessSigner interface {
	SignAccess(userID int64, totpVerified bool) (string, error)
}

type emailSigner interface {
	Sign(userID int64, salt string) (string, error)
	Verify(token, salt string) (int64, error)
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type service struct {
	repo        userStore
	totp        authenticator
	guard       codeGuard
	tokens      accessSigner
	emailTokens emailSigner
	mailer      mailer
	frontendURL string
	newSalt     func() string
}

type ServiceDeps struct {
	UserRepo    userStore
	TOTP        authenticator
	CodeGuard   codeGuard
	Tokens      accessSigner
	EmailTokens emailSigner
	Mailer      mailer
	FrontendURL string
	NewSalt     func() string // defaults to token.NewSalt
}

func NewService(deps ServiceDeps) Service {
	newSalt := deps.NewSalt
	if newSalt == nil {
		newSalt = pkgtoken.NewSalt
	}
	return &service{
		repo:        deps.UserRepo,
		totp:        deps.TOTP,
		guard:       deps.CodeGuard,
		tokens:      deps.Tokens,
		emailTokens: deps.EmailTokens,
		mailer:      deps.Mailer,
		frontendURL: strings.TrimRight(deps.FrontendURL, "/"),
		newSalt:     newSalt,
	}
}

func (s *service) TOTPSetup(ctx context.Context, userID int64) (*TOTPSetup, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TOTPVerified {
		return &TOTPSetup{AlreadyVerified: true, Message: "TOTP already verified, no QR code needed"}, nil
	}
	if u.TOTPSecret == "" {
		return nil, fmt.Errorf("account has no TOTP secret: %w", domain.ErrBadRequest)
	}
	return &TOTPSetup{ProvisioningURI: s.totp.ProvisioningURI(u.TOTPSecret, u.Email)}, nil
}

// VerifyTOTP checks code against the stored secret and, on success, marks the
// account as enrolled and returns an access token carrying the new claim.
func (s *service) VerifyTOTP(ctx context.Context, userID int64, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("TOTP code is required: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !s.totp.Validate(code, u.TOTPSecret) {
		return "", fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	fresh, err := s.guard.Claim(ctx, u.ID, code)
	if err != nil {
		return "", err
	}
	if !fresh {
		return "", fmt.Errorf("code already used: %w", domain.ErrUnauthorized)
	}

	if !u.TOTPVerified {
		if err := s.repo.Update(ctx, u.ID, map[string]interface{}{fieldTOTPVerified: true}); err != nil {
			return "", err
		}
	}
	access, err := s.tokens.SignAccess(u.ID, true)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("totp").Inc()
	return access, nil
}

func (s *service) SendVerificationEmail(ctx context.Context, u *domain.User) error {
	salt := s.newSalt()
	token, err := s.emailTokens.Sign(u.ID, salt)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("salt", salt)
	link := s.frontendURL + "/verify_email?" + q.Encode()

	body := fmt.Sprintf("Hi %s,\n\nPlease verify your email address by opening the link below. "+
		"The link expires in one hour.\n\n%s\n", u.Username, link)
	if err := s.mailer.SendEmail(ctx, u.Email, verificationSubject, body); err != nil {
		return fmt.Errorf("send verification email: %v: %w", err, domain.ErrExternal)
	}
	return nil
}

// VerifyEmail marks the token's account as verified. Verifying twice is harmless.
func (s *service) VerifyEmail(ctx context.Context, token, salt string) (*domain.User, error) {
	if token == "" || salt == "" {
		return nil, fmt.Errorf("token and salt are required: %w", domain.ErrBadRequest)
	}
	userID, err := s.emailTokens.Verify(token, salt)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.EmailVerified {
		if err := s.repo.Update(ctx, u.ID, map[string]interface{}{fieldEmailVerified: true}); err != nil {
			return nil, err
		}
		u.EmailVerified = true
	}
	return u, nil
}

// ResendVerification mails a new link when the address belongs to an
// unverified account. The outcome is the same either way.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("Email is required: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if u.EmailVerified {
		return nil
	}
	if err := s.SendVerificationEmail(ctx, u); err != nil {
		slog.WarnContext(ctx, "verification email not resent", "user_id", u.ID, "err", err)
	}
	return nil
}
