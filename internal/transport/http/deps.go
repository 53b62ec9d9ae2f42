package http

import (
	"context"
	"io"
	"time"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/infrastructure/emailtoken"
	jwtinfra "github.com/go-api-social/internal/infrastructure/jwt"
	"github.com/go-api-social/internal/infrastructure/postgres"
	"github.com/go-api-social/internal/infrastructure/smtp"
	"github.com/go-api-social/internal/infrastructure/totp"
	"github.com/go-api-social/internal/transport/http/handler"
)

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// CodeGuard rejects a TOTP code that was already accepted for the same user.
type CodeGuard interface {
	Claim(ctx context.Context, userID int64, code string) (bool, error)
}

// PaymentGateway is the minimal interface the router requires from the payment processor.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, userID int64) (*domain.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error)
}

// EventLedger remembers processed payment webhook events.
type EventLedger interface {
	MarkProcessed(ctx context.Context, ev domain.StripeEvent) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// EventPublisher announces membership changes to other systems.
type EventPublisher interface {
	PublishMembershipUpgraded(ctx context.Context, ev domain.MembershipUpgraded) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Store       *postgres.Store
	JWTProvider *jwtinfra.Provider
	EmailTokens *emailtoken.Signer
	TOTP        *totp.Authenticator
	CodeGuard   CodeGuard
	Objects     ObjectStore
	Mailer      smtp.Mailer
	Payments    PaymentGateway
	Ledger      EventLedger
	Publisher   EventPublisher
	Checks      []handler.Check
	Now         func() time.Time
}
