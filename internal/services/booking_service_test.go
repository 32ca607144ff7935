package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
)

type bookingFixture struct {
	svc       *BookingService
	mock      sqlmock.Sqlmock
	userID    uuid.UUID
	vehicleID string
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgres := &database.PostgresDB{DB: sqlxDB}

	logger := logrusDiscard()
	bookingRepo := database.NewBookingRepository(postgres)
	vehicleRepo := database.NewVehicleRepository(postgres)
	availability := NewAvailabilityService(bookingRepo, logger)

	return &bookingFixture{
		svc:       NewBookingService(bookingRepo, vehicleRepo, availability, logger),
		mock:      mock,
		userID:    uuid.New(),
		vehicleID: uuid.New().String(),
	}
}

func (f *bookingFixture) expectVehicle(pricePerDay float64, available bool) {
	now := time.Now()
	f.mock.ExpectQuery(`(?s)SELECT .+ FROM vehicles`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "category", "photos", "price_per_day",
			"daily_mileage_limit", "price_per_extra_mile",
			"min_rental_days", "max_rental_days",
			"fuel_type", "service_type", "seats", "doors", "transmission",
			"is_available", "created_by", "created_at", "updated_at",
		}).AddRow(
			f.vehicleID, "Toyota Aqua", "car", "{https://example.com/p.jpg}", pricePerDay,
			100, 0.5,
			1, 30,
			"Hybrid", "vehicle only", 5, 4, "auto",
			available, uuid.New(), now, now,
		))
}

func (f *bookingFixture) expectOverlapCount(count int) {
	f.mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).+FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func (f *bookingFixture) expectBookingByID(bookingID string, ownerID uuid.UUID) {
	now := time.Now()
	f.mock.ExpectQuery(`(?s)SELECT .+ FROM bookings.+WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "vehicle_id", "pickup_date", "return_date",
			"total_price", "deposit_amount", "payment_status",
			"stripe_session_id", "stripe_payment_intent_id",
			"created_at", "updated_at",
		}).AddRow(
			bookingID, ownerID, f.vehicleID,
			day("2024-06-10"), day("2024-06-15"),
			500.0, nil, "pending", nil, nil, now, now,
		))
}

func TestBookVehicle(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newBookingFixture(t)
		now := time.Now()

		f.expectVehicle(100, true)
		f.expectOverlapCount(0)
		f.mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		booking, err := f.svc.BookVehicle(f.userID, f.vehicleID, &models.CreateBookingRequest{
			PickupDate: "2024-06-10",
			ReturnDate: "2024-06-15",
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, 500.0, booking.TotalPrice)
		assert.Nil(t, booking.DepositAmount)
		assert.Nil(t, booking.StripeSessionID)

		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Dates taken", func(t *testing.T) {
		f := newBookingFixture(t)

		f.expectVehicle(100, true)
		f.expectOverlapCount(1)

		_, err := f.svc.BookVehicle(f.userID, f.vehicleID, &models.CreateBookingRequest{
			PickupDate: "2024-06-10",
			ReturnDate: "2024-06-15",
		})
		assert.ErrorIs(t, err, models.ErrConflict)

		// No insert was attempted
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Listing flag off", func(t *testing.T) {
		f := newBookingFixture(t)

		f.expectVehicle(100, false)

		_, err := f.svc.BookVehicle(f.userID, f.vehicleID, &models.CreateBookingRequest{
			PickupDate: "2024-06-10",
			ReturnDate: "2024-06-15",
		})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("Inverted range", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.svc.BookVehicle(f.userID, f.vehicleID, &models.CreateBookingRequest{
			PickupDate: "2024-06-15",
			ReturnDate: "2024-06-10",
		})
		assert.ErrorIs(t, err, models.ErrInvalidRange)
	})

	t.Run("Exceeds max rental days", func(t *testing.T) {
		f := newBookingFixture(t)

		f.expectVehicle(100, true)

		_, err := f.svc.BookVehicle(f.userID, f.vehicleID, &models.CreateBookingRequest{
			PickupDate: "2024-06-01",
			ReturnDate: "2024-08-01",
		})
		assert.ErrorIs(t, err, models.ErrInvalidRange)
	})
}

func TestGetBookingOwnership(t *testing.T) {
	f := newBookingFixture(t)
	bookingID := uuid.New().String()
	ownerID := uuid.New()

	t.Run("Stranger denied", func(t *testing.T) {
		f.expectBookingByID(bookingID, ownerID)

		_, err := f.svc.GetBooking(bookingID, f.userID, false)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("Admin allowed", func(t *testing.T) {
		f.expectBookingByID(bookingID, ownerID)

		booking, err := f.svc.GetBooking(bookingID, f.userID, true)
		require.NoError(t, err)
		assert.Equal(t, bookingID, booking.ID)
	})

	t.Run("Owner allowed", func(t *testing.T) {
		f.expectBookingByID(bookingID, f.userID)

		booking, err := f.svc.GetBooking(bookingID, f.userID, false)
		require.NoError(t, err)
		assert.Equal(t, bookingID, booking.ID)
	})

	t.Run("Absent booking maps to ErrNotFound", func(t *testing.T) {
		f.mock.ExpectQuery(`(?s)SELECT .+ FROM bookings.+WHERE id`).
			WillReturnError(sql.ErrNoRows)

		_, err := f.svc.GetBooking(uuid.New().String(), f.userID, false)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestUpdateDates(t *testing.T) {
	t.Run("Success reprices", func(t *testing.T) {
		f := newBookingFixture(t)
		bookingID := uuid.New().String()

		f.expectBookingByID(bookingID, f.userID)
		f.expectVehicle(100, true)
		f.expectOverlapCount(0)
		f.mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		booking, err := f.svc.UpdateDates(bookingID, f.userID, false, &models.UpdateBookingDatesRequest{
			PickupDate: "2024-07-01",
			ReturnDate: "2024-07-03",
		})
		require.NoError(t, err)

		assert.Equal(t, day("2024-07-01"), booking.PickupDate)
		assert.Equal(t, 200.0, booking.TotalPrice)

		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("Conflict leaves booking unmodified", func(t *testing.T) {
		f := newBookingFixture(t)
		bookingID := uuid.New().String()

		f.expectBookingByID(bookingID, f.userID)
		f.expectVehicle(100, true)
		f.expectOverlapCount(1)

		_, err := f.svc.UpdateDates(bookingID, f.userID, false, &models.UpdateBookingDatesRequest{
			PickupDate: "2024-07-01",
			ReturnDate: "2024-07-03",
		})
		assert.ErrorIs(t, err, models.ErrConflict)

		// No UPDATE was issued; the stored dates stand
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}
