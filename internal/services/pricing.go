package services

import (
	"math"
	"time"

	"github.com/abyrenters/rental-backend/internal/models"
)

// DepositRate is the fraction of the total rental price collected up front
// at checkout.
const DepositRate = 0.15

// Quote is the price breakdown for a rental period. DepositCents is the
// integer amount sent to Stripe; every dollar figure derives from it so the
// checkout response and the confirmed booking can never disagree by a cent.
type Quote struct {
	Days         int
	TotalPrice   float64
	DepositCents int64
}

// Deposit returns the deposit in currency units
func (q Quote) Deposit() float64 {
	return float64(q.DepositCents) / 100
}

// RentalDays returns the number of billable days between pickup and return.
// Partial days round up and a same-day rental bills one day.
func RentalDays(pickup, drop time.Time) int {
	hours := drop.Sub(pickup).Hours()
	days := int(math.Ceil(hours / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// PriceRental computes the quote for renting a vehicle over [pickup, drop].
// Returns ErrInvalidRange when drop precedes pickup.
func PriceRental(vehicle *models.Vehicle, pickup, drop time.Time) (Quote, error) {
	if drop.Before(pickup) {
		return Quote{}, models.ErrInvalidRange
	}

	days := RentalDays(pickup, drop)
	total := float64(days) * vehicle.PricePerDay

	return Quote{
		Days:         days,
		TotalPrice:   total,
		DepositCents: int64(math.Round(total * DepositRate * 100)),
	}, nil
}
