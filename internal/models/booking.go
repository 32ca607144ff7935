package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking represents a vehicle rental reservation over a closed date
// interval [PickupDate, ReturnDate].
type Booking struct {
	ID                    string        `json:"id" db:"id"`
	UserID                uuid.UUID     `json:"user_id" db:"user_id"`
	VehicleID             string        `json:"vehicle_id" db:"vehicle_id"`
	PickupDate            time.Time     `json:"pickup_date" db:"pickup_date"`
	ReturnDate            time.Time     `json:"return_date" db:"return_date"`
	TotalPrice            float64       `json:"total_price" db:"total_price"`
	DepositAmount         *float64      `json:"deposit_amount,omitempty" db:"deposit_amount"`
	PaymentStatus         PaymentStatus `json:"payment_status" db:"payment_status"`
	StripeSessionID       *string       `json:"stripe_session_id,omitempty" db:"stripe_session_id"`
	StripePaymentIntentID *string       `json:"stripe_payment_intent_id,omitempty" db:"stripe_payment_intent_id"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at" db:"updated_at"`
}

// IsPaid checks if the booking is paid
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}

// Overlaps reports whether the closed intervals [p1, r1] and [p2, r2]
// intersect. Touching endpoints count: same-day handover is a conflict.
func Overlaps(p1, r1, p2, r2 time.Time) bool {
	return !p1.After(r2) && !r1.Before(p2)
}

// dateLayouts accepted for pickup/return dates. Clients send either a bare
// date or the RFC3339 timestamp the checkout metadata round-trips.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses a pickup/return date, truncated to UTC midnight.
// Returns ErrInvalidRange for anything unparseable.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidRange
}

// ParseDateRange parses and orders a pickup/return pair.
// Empty fields or drop < pickup yield ErrInvalidRange.
func ParseDateRange(pickup, drop string) (time.Time, time.Time, error) {
	if pickup == "" || drop == "" {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	p, err := ParseDate(pickup)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	r, err := ParseDate(drop)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if r.Before(p) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return p, r, nil
}

// CreateBookingRequest represents the direct (no payment) booking request
type CreateBookingRequest struct {
	PickupDate string `json:"pickup_date" binding:"required"`
	ReturnDate string `json:"return_date" binding:"required"`
}

// UpdateBookingDatesRequest represents a booking edit request
type UpdateBookingDatesRequest struct {
	PickupDate string `json:"pickup_date" binding:"required"`
	ReturnDate string `json:"return_date" binding:"required"`
}

// CheckoutRequest represents the deposit checkout request
type CheckoutRequest struct {
	VehicleID  string `json:"vehicle_id" binding:"required"`
	PickupDate string `json:"pickup_date" binding:"required"`
	ReturnDate string `json:"return_date" binding:"required"`
}

// CheckoutResponse is returned to the caller after a checkout session is
// created. No booking exists yet at this point.
type CheckoutResponse struct {
	CheckoutURL string  `json:"checkout_url"`
	SessionID   string  `json:"session_id"`
	TotalPrice  float64 `json:"total_price"`
	Deposit     float64 `json:"deposit"`
}
