package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Vehicle categories
var VehicleCategories = []string{"bike", "tuk-tuk", "car", "van", "bus", "luxury-car"}

// Fuel types
var FuelTypes = []string{"Petrol", "Diesel", "Electric", "Hybrid"}

// Service types
var ServiceTypes = []string{"vehicle only", "with driver"}

// Transmissions
var Transmissions = []string{"auto", "manual"}

// Vehicle represents a rentable vehicle in the catalog. The per-day rate is
// treated as immutable while a booking is in flight.
type Vehicle struct {
	ID                string         `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	Category          string         `json:"category" db:"category"`
	Photos            pq.StringArray `json:"photos" db:"photos"`
	PricePerDay       float64        `json:"price_per_day" db:"price_per_day"`
	DailyMileageLimit int            `json:"daily_mileage_limit" db:"daily_mileage_limit"`
	PricePerExtraMile float64        `json:"price_per_extra_mile" db:"price_per_extra_mile"`
	MinRentalDays     int            `json:"min_rental_days" db:"min_rental_days"`
	MaxRentalDays     int            `json:"max_rental_days" db:"max_rental_days"`
	FuelType          string         `json:"fuel_type" db:"fuel_type"`
	ServiceType       string         `json:"service_type" db:"service_type"`
	Seats             int            `json:"seats" db:"seats"`
	Doors             int            `json:"doors" db:"doors"`
	Transmission      string         `json:"transmission" db:"transmission"`
	IsAvailable       bool           `json:"is_available" db:"is_available"`
	CreatedBy         uuid.UUID      `json:"created_by" db:"created_by"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// RegisterVehicleRequest represents the multipart form fields for vehicle
// registration (photos arrive as file parts)
type RegisterVehicleRequest struct {
	Name              string  `form:"name"`
	Category          string  `form:"category"`
	PricePerDay       float64 `form:"price_per_day"`
	DailyMileageLimit int     `form:"daily_mileage_limit"`
	PricePerExtraMile float64 `form:"price_per_extra_mile"`
	MinRentalDays     int     `form:"min_rental_days"`
	MaxRentalDays     int     `form:"max_rental_days"`
	FuelType          string  `form:"fuel_type"`
	ServiceType       string  `form:"service_type"`
	Seats             int     `form:"seats"`
	Doors             int     `form:"doors"`
	Transmission      string  `form:"transmission"`
}

// Validate validates the vehicle registration request
func (r *RegisterVehicleRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !contains(VehicleCategories, r.Category) {
		return fmt.Errorf("invalid category: %s", r.Category)
	}
	if r.PricePerDay <= 0 {
		return errors.New("price_per_day must be positive")
	}
	if r.DailyMileageLimit <= 0 || r.PricePerExtraMile < 0 {
		return errors.New("invalid mileage settings")
	}
	if r.MinRentalDays < 1 || r.MaxRentalDays < r.MinRentalDays {
		return errors.New("invalid rental day limits")
	}
	if !contains(FuelTypes, r.FuelType) {
		return fmt.Errorf("invalid fuel_type: %s", r.FuelType)
	}
	if !contains(ServiceTypes, r.ServiceType) {
		return fmt.Errorf("invalid service_type: %s", r.ServiceType)
	}
	if r.Seats <= 0 || r.Doors < 0 {
		return errors.New("invalid seats or doors")
	}
	if !contains(Transmissions, r.Transmission) {
		return fmt.Errorf("invalid transmission: %s", r.Transmission)
	}
	return nil
}

// SearchVehiclesRequest represents the availability search body
type SearchVehiclesRequest struct {
	PickupDate string `json:"pickup_date" binding:"required"`
	ReturnDate string `json:"return_date" binding:"required"`
	Category   string `json:"category" binding:"required"`
}

// VehicleSummary is the listing shape returned by availability search
type VehicleSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	FuelType    string  `json:"fuel_type"`
	ServiceType string  `json:"service_type"`
	PricePerDay float64 `json:"price_per_day"`
	Photo       string  `json:"photo,omitempty"`
}

// Summary converts a vehicle to its listing shape (first photo only)
func (v *Vehicle) Summary() VehicleSummary {
	s := VehicleSummary{
		ID:          v.ID,
		Name:        v.Name,
		FuelType:    v.FuelType,
		ServiceType: v.ServiceType,
		PricePerDay: v.PricePerDay,
	}
	if len(v.Photos) > 0 {
		s.Photo = v.Photos[0]
	}
	return s
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
