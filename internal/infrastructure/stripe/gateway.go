package stripeinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-api-social/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const metadataUserID = "user_id"

var ErrInvalidSignature = errors.New("invalid signature")

type Config struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
	PriceCents    int64
}

// Gateway talks to Stripe Checkout.
type Gateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	priceCents    int64
}

func NewGateway(cfg Config) *Gateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return newGateway(api, cfg)
}

func newGateway(api *client.API, cfg Config) *Gateway {
	base := strings.TrimRight(cfg.FrontendURL, "/")
	return &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		successURL:    base + "/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:     base + "/failure",
		priceCents:    cfg.PriceCents,
	}
}

// CreateCheckoutSession opens a one-off card payment for the premium tier.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, userID int64) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Premium Membership"),
				},
				UnitAmount: stripe.Int64(g.priceCents),
			},
			Quantity: stripe.Int64(1),
		}},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, strconv.FormatInt(userID, 10))

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %v: %w", err, domain.ErrExternal)
	}
	return toSession(s), nil
}

func (g *Gateway) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return nil, fmt.Errorf("checkout session not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get checkout session: %v: %w", err, domain.ErrExternal)
	}
	return toSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, ErrInvalidSignature
	}
	out := &domain.PaymentEvent{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Session = toSession(&s)
	}
	return out, nil
}

func toSession(s *stripe.CheckoutSession) *domain.CheckoutSession {
	out := &domain.CheckoutSession{
		ID:   s.ID,
		URL:  s.URL,
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if v, ok := s.Metadata[metadataUserID]; ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.UserID = id
		}
	}
	return out
}
