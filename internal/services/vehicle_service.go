package services

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
)

// VehicleService handles catalog operations: registration, lookup with
// optional pricing, and availability search.
type VehicleService struct {
	vehicleRepo  *database.VehicleRepository
	availability *AvailabilityService
	logger       *logrus.Logger
}

// NewVehicleService creates a new VehicleService
func NewVehicleService(vehicleRepo *database.VehicleRepository, availability *AvailabilityService, logger *logrus.Logger) *VehicleService {
	return &VehicleService{
		vehicleRepo:  vehicleRepo,
		availability: availability,
		logger:       logger,
	}
}

// Register adds a vehicle to the catalog. photoURLs come from the upload
// service; at least one photo is required.
func (s *VehicleService) Register(adminID uuid.UUID, req *models.RegisterVehicleRequest, photoURLs []string) (*models.Vehicle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(photoURLs) == 0 {
		return nil, models.ErrInvalidRange
	}

	vehicle := &models.Vehicle{
		Name:              req.Name,
		Category:          req.Category,
		Photos:            pq.StringArray(photoURLs),
		PricePerDay:       req.PricePerDay,
		DailyMileageLimit: req.DailyMileageLimit,
		PricePerExtraMile: req.PricePerExtraMile,
		MinRentalDays:     req.MinRentalDays,
		MaxRentalDays:     req.MaxRentalDays,
		FuelType:          req.FuelType,
		ServiceType:       req.ServiceType,
		Seats:             req.Seats,
		Doors:             req.Doors,
		Transmission:      req.Transmission,
		IsAvailable:       true,
		CreatedBy:         adminID,
	}

	if err := s.vehicleRepo.Create(vehicle); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"vehicle_id": vehicle.ID,
		"category":   vehicle.Category,
	}).Info("Vehicle registered")

	return vehicle, nil
}

// Get retrieves a vehicle by id
func (s *VehicleService) Get(vehicleID string) (*models.Vehicle, error) {
	return s.vehicleRepo.GetByID(vehicleID)
}

// GetWithQuote retrieves a vehicle and prices it over [pickup, drop] when a
// date range is supplied. Either both dates or neither.
func (s *VehicleService) GetWithQuote(vehicleID, pickupDate, returnDate string) (*models.Vehicle, *Quote, error) {
	vehicle, err := s.vehicleRepo.GetByID(vehicleID)
	if err != nil {
		return nil, nil, err
	}

	if pickupDate == "" && returnDate == "" {
		return vehicle, nil, nil
	}

	pickup, drop, err := models.ParseDateRange(pickupDate, returnDate)
	if err != nil {
		return nil, nil, err
	}

	quote, err := PriceRental(vehicle, pickup, drop)
	if err != nil {
		return nil, nil, err
	}

	return vehicle, &quote, nil
}

// SetAvailability toggles the admin listing flag. Existing bookings are
// unaffected; the flag only gates new ones.
func (s *VehicleService) SetAvailability(vehicleID string, available bool) error {
	if err := s.vehicleRepo.SetAvailability(vehicleID, available); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"vehicle_id": vehicleID,
		"available":  available,
	}).Info("Vehicle availability flag updated")

	return nil
}

// List returns a page of the whole catalog
func (s *VehicleService) List(limit, offset int) ([]models.Vehicle, error) {
	return s.vehicleRepo.List(limit, offset)
}

// SearchAvailable returns vehicles in a category that are free over the
// requested closed interval
func (s *VehicleService) SearchAvailable(req *models.SearchVehiclesRequest) ([]models.VehicleSummary, error) {
	pickup, drop, err := models.ParseDateRange(req.PickupDate, req.ReturnDate)
	if err != nil {
		return nil, err
	}
	if !contains(models.VehicleCategories, req.Category) {
		return nil, models.ErrInvalidRange
	}

	vehicles, err := s.vehicleRepo.GetByCategory(req.Category)
	if err != nil {
		return nil, err
	}

	summaries := []models.VehicleSummary{}
	for i := range vehicles {
		available, err := s.availability.IsAvailable(vehicles[i].ID, pickup, drop)
		if err != nil {
			return nil, err
		}
		if available {
			summaries = append(summaries, vehicles[i].Summary())
		}
	}

	return summaries, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
