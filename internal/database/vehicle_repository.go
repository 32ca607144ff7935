package database

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/abyrenters/rental-backend/internal/models"
)

// VehicleRepository handles database operations for the vehicles table
type VehicleRepository struct {
	db DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Create inserts a vehicle
func (r *VehicleRepository) Create(vehicle *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (
			id, name, category, photos, price_per_day,
			daily_mileage_limit, price_per_extra_mile,
			min_rental_days, max_rental_days,
			fuel_type, service_type, seats, doors, transmission,
			is_available, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING created_at, updated_at
	`

	if vehicle.ID == "" {
		vehicle.ID = uuid.New().String()
	}

	return r.db.QueryRow(
		query,
		vehicle.ID, vehicle.Name, vehicle.Category, pq.Array(vehicle.Photos), vehicle.PricePerDay,
		vehicle.DailyMileageLimit, vehicle.PricePerExtraMile,
		vehicle.MinRentalDays, vehicle.MaxRentalDays,
		vehicle.FuelType, vehicle.ServiceType, vehicle.Seats, vehicle.Doors, vehicle.Transmission,
		vehicle.IsAvailable, vehicle.CreatedBy,
	).Scan(&vehicle.CreatedAt, &vehicle.UpdatedAt)
}

// GetByID retrieves a vehicle, returning models.ErrNotFound when absent
func (r *VehicleRepository) GetByID(vehicleID string) (*models.Vehicle, error) {
	query := selectVehicleColumns + ` WHERE id = $1`

	vehicle, err := r.scanVehicle(r.db.QueryRow(query, vehicleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return vehicle, err
}

// GetByCategory retrieves all active vehicles in a category
func (r *VehicleRepository) GetByCategory(category string) ([]models.Vehicle, error) {
	query := selectVehicleColumns + ` WHERE category = $1 AND is_available ORDER BY created_at DESC`

	rows, err := r.db.Query(query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVehicles(rows)
}

// List retrieves all vehicles
func (r *VehicleRepository) List(limit, offset int) ([]models.Vehicle, error) {
	query := selectVehicleColumns + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVehicles(rows)
}

// SetAvailability toggles the admin-facing availability flag
func (r *VehicleRepository) SetAvailability(vehicleID string, available bool) error {
	result, err := r.db.Exec(
		`UPDATE vehicles SET is_available = $2, updated_at = NOW() WHERE id = $1`,
		vehicleID, available,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

const selectVehicleColumns = `
	SELECT id, name, category, photos, price_per_day,
		   daily_mileage_limit, price_per_extra_mile,
		   min_rental_days, max_rental_days,
		   fuel_type, service_type, seats, doors, transmission,
		   is_available, created_by, created_at, updated_at
	FROM vehicles`

func (r *VehicleRepository) scanVehicle(row scanner) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{}

	err := row.Scan(
		&vehicle.ID, &vehicle.Name, &vehicle.Category, &vehicle.Photos, &vehicle.PricePerDay,
		&vehicle.DailyMileageLimit, &vehicle.PricePerExtraMile,
		&vehicle.MinRentalDays, &vehicle.MaxRentalDays,
		&vehicle.FuelType, &vehicle.ServiceType, &vehicle.Seats, &vehicle.Doors, &vehicle.Transmission,
		&vehicle.IsAvailable, &vehicle.CreatedBy, &vehicle.CreatedAt, &vehicle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return vehicle, nil
}

func (r *VehicleRepository) scanVehicles(rows *sql.Rows) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}

	for rows.Next() {
		vehicle, err := r.scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *vehicle)
	}

	return vehicles, rows.Err()
}
