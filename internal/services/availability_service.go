package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/database"
)

// AvailabilityService answers whether a vehicle is free over a closed date
// interval. Both the checkout pre-check and the webhook re-validation go
// through it so the two phases cannot drift apart.
type AvailabilityService struct {
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(bookingRepo *database.BookingRepository, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// IsAvailable reports whether vehicleID has no non-refunded booking
// overlapping [pickup, drop]. Endpoints touching counts as a conflict: the
// vehicle is handed back the same day it would be picked up.
func (s *AvailabilityService) IsAvailable(vehicleID string, pickup, drop time.Time) (bool, error) {
	return s.isAvailableExcluding(vehicleID, pickup, drop, "")
}

// IsAvailableForEdit is IsAvailable with the booking being edited excluded,
// so a booking never conflicts with itself.
func (s *AvailabilityService) IsAvailableForEdit(vehicleID string, pickup, drop time.Time, bookingID string) (bool, error) {
	return s.isAvailableExcluding(vehicleID, pickup, drop, bookingID)
}

func (s *AvailabilityService) isAvailableExcluding(vehicleID string, pickup, drop time.Time, excludeBookingID string) (bool, error) {
	count, err := s.bookingRepo.CountOverlapping(vehicleID, pickup, drop, excludeBookingID)
	if err != nil {
		s.logger.WithError(err).WithField("vehicle_id", vehicleID).Error("Failed to check availability")
		return false, err
	}

	return count == 0, nil
}
