package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
)

// BookingService handles the direct booking path (no payment) and booking
// lifecycle operations. It shares conflict semantics with the paid flow:
// same closed-interval overlap rule, same store constraint backstop.
type BookingService struct {
	bookingRepo  *database.BookingRepository
	vehicleRepo  *database.VehicleRepository
	availability *AvailabilityService
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	vehicleRepo *database.VehicleRepository,
	availability *AvailabilityService,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		vehicleRepo:  vehicleRepo,
		availability: availability,
		logger:       logger,
	}
}

// BookVehicle creates a pending booking directly, without a deposit.
// Returns ErrConflict when the dates are taken.
func (s *BookingService) BookVehicle(userID uuid.UUID, vehicleID string, req *models.CreateBookingRequest) (*models.Booking, error) {
	pickup, drop, err := models.ParseDateRange(req.PickupDate, req.ReturnDate)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(vehicleID)
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

	booking := &models.Booking{
		UserID:        userID,
		VehicleID:     vehicle.ID,
		PickupDate:    pickup,
		ReturnDate:    drop,
		TotalPrice:    quote.TotalPrice,
		PaymentStatus: models.PaymentStatusPending,
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"vehicle_id": vehicle.ID,
		"user_id":    userID,
	}).Info("Booking created")

	return booking, nil
}

// GetUserBookings lists the caller's bookings, newest first
func (s *BookingService) GetUserBookings(userID uuid.UUID) ([]models.Booking, error) {
	return s.bookingRepo.GetByUserID(userID)
}

// GetBooking retrieves a booking the caller is allowed to see
func (s *BookingService) GetBooking(bookingID string, userID uuid.UUID, isAdmin bool) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID && !isAdmin {
		return nil, models.ErrUnauthorized
	}

	return booking, nil
}

// UpdateDates moves a booking to a new date range, repricing it. The booking
// being edited is excluded from the overlap check so it never conflicts with
// itself. On conflict the booking is left unmodified.
func (s *BookingService) UpdateDates(bookingID string, userID uuid.UUID, isAdmin bool, req *models.UpdateBookingDatesRequest) (*models.Booking, error) {
	booking, err := s.GetBooking(bookingID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	pickup, drop, err := models.ParseDateRange(req.PickupDate, req.ReturnDate)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(booking.VehicleID)
	if err != nil {
		return nil, err
	}

	quote, err := PriceRental(vehicle, pickup, drop)
	if err != nil {
		return nil, err
	}

	available, err := s.availability.IsAvailableForEdit(booking.VehicleID, pickup, drop, booking.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, models.ErrConflict
	}

	if err := s.bookingRepo.UpdateDates(booking.ID, pickup, drop, quote.TotalPrice); err != nil {
		return nil, err
	}

	booking.PickupDate = pickup
	booking.ReturnDate = drop
	booking.TotalPrice = quote.TotalPrice

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"vehicle_id": booking.VehicleID,
	}).Info("Booking dates updated")

	return booking, nil
}

// Cancel deletes a booking, releasing its dates for other renters
func (s *BookingService) Cancel(bookingID string, userID uuid.UUID, isAdmin bool) error {
	booking, err := s.GetBooking(bookingID, userID, isAdmin)
	if err != nil {
		return err
	}

	if err := s.bookingRepo.Delete(booking.ID); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"vehicle_id": booking.VehicleID,
	}).Info("Booking cancelled")

	return nil
}
