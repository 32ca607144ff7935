package services

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

// Metadata keys carried on the Stripe checkout session and read back off the
// completion webhook. The session metadata is the only record of the
// requested booking until payment confirms; no booking row exists yet.
const (
	metaUserID       = "user_id"
	metaVehicleID    = "vehicle_id"
	metaPickupDate   = "pickup_date"
	metaReturnDate   = "return_date"
	metaTotalPrice   = "total_price"
	metaDepositCents = "deposit_cents"
)

// CheckoutService starts the paid booking flow: it validates the request,
// prices the rental and creates a Stripe checkout session for the deposit.
// It never writes a booking; that happens only when the payment webhook
// confirms.
type CheckoutService struct {
	vehicleRepo  *database.VehicleRepository
	availability *AvailabilityService
	payments     *stripe.Client
	logger       *logrus.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	vehicleRepo *database.VehicleRepository,
	availability *AvailabilityService,
	payments *stripe.Client,
	logger *logrus.Logger,
) *CheckoutService {
	return &CheckoutService{
		vehicleRepo:  vehicleRepo,
		availability: availability,
		payments:     payments,
		logger:       logger,
	}
}

// CreateCheckout validates availability and returns a checkout session URL
// for the deposit. The availability check here is advisory: the store
// constraint at confirmation time is what actually prevents double-booking.
func (s *CheckoutService) CreateCheckout(userID uuid.UUID, userEmail string, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {
	pickup, drop, err := models.ParseDateRange(req.PickupDate, req.ReturnDate)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsAvailable {
		return nil, models.ErrConflict
	}

	quote, err := PriceRental(vehicle, pickup, drop)
	if err != nil {
		return nil, err
	}
	if quote.Days < vehicle.MinRentalDays || quote.Days > vehicle.MaxRentalDays {
		return nil, models.ErrInvalidRange
	}

	available, err := s.availability.IsAvailable(vehicle.ID, pickup, drop)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, models.ErrConflict
	}

	session, err := s.payments.CreateCheckoutSession(&stripe.CheckoutParams{
		AmountCents:   quote.DepositCents,
		ProductName:   fmt.Sprintf("Deposit: %s", vehicle.Name),
		Description:   fmt.Sprintf("%d day rental, %s to %s", quote.Days, req.PickupDate, req.ReturnDate),
		CustomerEmail: userEmail,
		Metadata: map[string]string{
			metaUserID:       userID.String(),
			metaVehicleID:    vehicle.ID,
			metaPickupDate:   pickup.Format("2006-01-02"),
			metaReturnDate:   drop.Format("2006-01-02"),
			metaTotalPrice:   strconv.FormatFloat(quote.TotalPrice, 'f', 2, 64),
			metaDepositCents: strconv.FormatInt(quote.DepositCents, 10),
		},
	})
	if err != nil {
		s.logger.WithError(err).WithField("vehicle_id", vehicle.ID).Error("Failed to create checkout session")
		return nil, models.ErrUpstream
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"vehicle_id": vehicle.ID,
		"user_id":    userID,
		"days":       quote.Days,
	}).Info("Checkout session created")

	return &models.CheckoutResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		TotalPrice:  quote.TotalPrice,
		Deposit:     quote.Deposit(),
	}, nil
}
