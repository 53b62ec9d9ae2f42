package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type secretGenerator interface {
	NewSecret(account string) (string, error)
}

type verificationSender interface {
	SendVerificationEmail(ctx context.Context, u *domain.User) error
}

type service struct {
	repo     userStore
	secrets  secretGenerator
	verifier verificationSender
	hashCost int
}

type ServiceDeps struct {
	UserRepo   userStore
	Secrets    secretGenerator
	Verifier   verificationSender
	BcryptCost int // zero means bcrypt.DefaultCost
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{
		repo:     deps.UserRepo,
		secrets:  deps.Secrets,
		verifier: deps.Verifier,
		hashCost: cost,
	}
}

// Signup creates an unverified basic account and mails a verification link.
// No tokens are issued until the address is confirmed.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	if err := s.ensureAvailable(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%s: %w", validate.MsgPasswordLength, domain.ErrBadRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	secret, err := s.secrets.NewSecret(req.Email)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Membership:   domain.MembershipBasic,
		TOTPSecret:   secret,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	if err := s.verifier.SendVerificationEmail(ctx, u); err != nil {
		slog.WarnContext(ctx, "verification email not sent", "user_id", u.ID, "err", err)
	}
	return u, nil
}

func (s *service) ensureAvailable(ctx context.Context, email, username string) error {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("Email already in use: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return fmt.Errorf("Username already taken: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
