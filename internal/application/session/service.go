package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-api-social/internal/domain"
	jwtinfra "github.com/go-api-social/internal/infrastructure/jwt"
	"github.com/go-api-social/internal/observability/metrics"
	"golang.org/x/crypto/bcrypt"
)

// MsgInvalidCredentials is shared by every credential failure so callers
// cannot tell an unknown email from a wrong password.
const MsgInvalidCredentials = "Invalid email or password"

type LoginResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"-"`
	User         *domain.User `json:"user"`
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	Issue(ctx context.Context, u *domain.User, flow string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenIssuer interface {
	SignAccess(userID int64, totpVerified bool) (string, error)
	SignRefresh(userID int64) (string, error)
	VerifyRefresh(token string) (*jwtinfra.Claims, error)
}

type service struct {
	repo   userStore
	tokens tokenIssuer
}

type ServiceDeps struct {
	UserRepo userStore
	Tokens   tokenIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, tokens: deps.Tokens}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		metrics.AuthLoginsTotal.WithLabelValues("bad_request").Inc()
		return nil, fmt.Errorf("Email and password required: %w", domain.ErrBadRequest)
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, fmt.Errorf("%s: %w", MsgInvalidCredentials, domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		metrics.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, fmt.Errorf("%s: %w", MsgInvalidCredentials, domain.ErrUnauthorized)
	}
	if !u.EmailVerified {
		metrics.AuthLoginsTotal.WithLabelValues("email_unverified").Inc()
		return nil, fmt.Errorf("Email not verified: %w", domain.ErrUnauthorized)
	}

	metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	return s.Issue(ctx, u, "login")
}

// Issue mints a token pair for u. The access token carries the account's
// current second-factor state so a user who enrolled earlier keeps it.
func (s *service) Issue(_ context.Context, u *domain.User, flow string) (*LoginResult, error) {
	access, err := s.tokens.SignAccess(u.ID, u.TOTPVerified)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.SignRefresh(u.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues(flow).Inc()
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Refresh exchanges a refresh token for a new access token. Nothing is stored
// server side, so the refresh token itself is left untouched.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("missing refresh token: %w", domain.ErrUnauthorized)
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	u, err := s.repo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
		}
		return "", err
	}
	access, err := s.tokens.SignAccess(u.ID, u.TOTPVerified)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return access, nil
}
