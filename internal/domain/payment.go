package domain

const (
	PaymentEventCheckoutCompleted = "checkout.session.completed"

	UpgradeSourceWebhook       = "webhook"
	UpgradeSourceVerifySession = "verify_session"
)

// CheckoutSession is the slice of a processor checkout session the service reads.
type CheckoutSession struct {
	ID     string `json:"session_id"`
	URL    string `json:"url,omitempty"`
	Paid   bool   `json:"-"`
	UserID int64  `json:"-"` // from metadata; 0 when absent or malformed
}

// PaymentEvent is a verified webhook delivery.
type PaymentEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // set for checkout.session.* events
}
