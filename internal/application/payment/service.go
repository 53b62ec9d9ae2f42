package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-api-social/internal/domain"
	"github.com/go-api-social/internal/observability/metrics"
)

type Service interface {
	CreateCheckout(ctx context.Context, userID int64) (*domain.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	VerifySession(ctx context.Context, userID int64, sessionID string) error
}

type userStore interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
	UpgradeMembership(ctx context.Context, userID int64) (bool, error)
}

type gateway interface {
	CreateCheckoutSession(ctx context.Context, userID int64) (*domain.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error)
}

type eventLedger interface {
	MarkProcessed(ctx context.Context, ev domain.StripeEvent) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type eventPublisher interface {
	PublishMembershipUpgraded(ctx context.Context, ev domain.MembershipUpgraded) error
}

type service struct {
	users     userStore
	gateway   gateway
	ledger    eventLedger
	publisher eventPublisher
	now       func() time.Time
}

type ServiceDeps struct {
	UserRepo  userStore
	Gateway   gateway
	Ledger    eventLedger
	Publisher eventPublisher
	Now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:     deps.UserRepo,
		gateway:   deps.Gateway,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		now:       now,
	}
}

func (s *service) CreateCheckout(ctx context.Context, userID int64) (*domain.CheckoutSession, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsPremium() {
		return nil, fmt.Errorf("User already has premium membership: %w", domain.ErrBadRequest)
	}
	return s.gateway.CreateCheckoutSession(ctx, userID)
}

// HandleWebhook applies a paid checkout at most once per event id. Events
// that carry nothing to apply are acknowledged so the processor stops
// redelivering them.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		slog.WarnContext(ctx, "webhook rejected", "err", err)
		return fmt.Errorf("Invalid signature: %w", domain.ErrBadRequest)
	}
	if ev.Type != domain.PaymentEventCheckoutCompleted {
		slog.DebugContext(ctx, "webhook ignored", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
	sess := ev.Session
	if sess == nil || !sess.Paid || sess.UserID == 0 {
		slog.InfoContext(ctx, "checkout completed without a payable user", "event_id", ev.ID)
		return nil
	}

	first, err := s.ledger.MarkProcessed(ctx, domain.StripeEvent{
		EventID:   ev.ID,
		Type:      ev.Type,
		SessionID: sess.ID,
		UserID:    sess.UserID,
	})
	if err != nil {
		return err
	}
	if !first {
		slog.InfoContext(ctx, "webhook replay acknowledged", "event_id", ev.ID)
		return nil
	}

	if err := s.upgrade(ctx, sess.UserID, sess.ID, domain.UpgradeSourceWebhook); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "paid checkout for missing user", "event_id", ev.ID, "user_id", sess.UserID)
			return nil
		}
		if rerr := s.ledger.Release(ctx, ev.ID); rerr != nil {
			slog.ErrorContext(ctx, "release webhook event", "event_id", ev.ID, "err", rerr)
		}
		return err
	}
	return nil
}

func (s *service) VerifySession(ctx context.Context, userID int64, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session_id is required: %w", domain.ErrBadRequest)
	}
	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Paid {
		return fmt.Errorf("Payment not completed: %w", domain.ErrBadRequest)
	}
	if sess.UserID != userID {
		return fmt.Errorf("session belongs to another user: %w", domain.ErrForbidden)
	}
	return s.upgrade(ctx, userID, sess.ID, domain.UpgradeSourceVerifySession)
}

// upgrade flips the user to premium. Only the call that changed the row
// announces the upgrade.
func (s *service) upgrade(ctx context.Context, userID int64, sessionID, source string) error {
	changed, err := s.users.UpgradeMembership(ctx, userID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	metrics.MembershipUpgradesTotal.WithLabelValues(source).Inc()
	slog.InfoContext(ctx, "membership upgraded", "user_id", userID, "source", source)

	ev := domain.MembershipUpgraded{
		Type:       domain.EventMembershipUpgraded,
		UserID:     userID,
		Source:     source,
		SessionID:  sessionID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishMembershipUpgraded(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish membership event", "user_id", userID, "err", err)
	}
	return nil
}
