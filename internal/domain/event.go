package domain

import "time"

const EventMembershipUpgraded = "membership.upgraded"

// MembershipUpgraded is published once per effective basic → premium transition.
type MembershipUpgraded struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Source     string    `json:"source"` // "webhook" | "verify_session"
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StripeEvent is a processed payment-processor event recorded for idempotency.
type StripeEvent struct {
	EventID     string    `json:"event_id" dynamodbav:"event_id"`
	Type        string    `json:"type" dynamodbav:"type"`
	SessionID   string    `json:"session_id" dynamodbav:"session_id"`
	UserID      int64     `json:"user_id" dynamodbav:"user_id"`
	ProcessedAt time.Time `json:"processed_at" dynamodbav:"processed_at"`
	ExpiresAt   int64     `json:"-" dynamodbav:"expires_at"`
}
