package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookOutcome classifies how a payment webhook event was resolved
type WebhookOutcome string

const (
	// WebhookOutcomeBooked - event produced a confirmed booking
	WebhookOutcomeBooked WebhookOutcome = "booked"
	// WebhookOutcomeDuplicate - redelivered event, booking already existed
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	// WebhookOutcomeRefunded - lost the availability race, deposit refunded
	WebhookOutcomeRefunded WebhookOutcome = "refunded"
	// WebhookOutcomeRefundFailed - lost the race and the compensating refund
	// failed; picked up by reconciliation
	WebhookOutcomeRefundFailed WebhookOutcome = "refund_failed"
	// WebhookOutcomeIgnored - event type this service does not act on
	WebhookOutcomeIgnored WebhookOutcome = "ignored"
)

// WebhookAudit is the durable record of a processed payment webhook event.
// Refund outcomes must be recorded here for reconciliation even though the
// provider is always acknowledged.
type WebhookAudit struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	EventID         string         `json:"event_id" db:"event_id"`
	EventType       string         `json:"event_type" db:"event_type"`
	SessionID       *string        `json:"session_id,omitempty" db:"session_id"`
	PaymentIntentID *string        `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	Outcome         WebhookOutcome `json:"outcome" db:"outcome"`
	BookingID       *string        `json:"booking_id,omitempty" db:"booking_id"`
	ErrorMessage    *string        `json:"error_message,omitempty" db:"error_message"`
	IPAddress       *string        `json:"-" db:"ip_address"`
	UserAgent       *string        `json:"-" db:"user_agent"`
	Resolved        bool           `json:"resolved" db:"resolved"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}
