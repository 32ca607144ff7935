package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyrenters/rental-backend/internal/models"
)

func newBookingRepoMock(t *testing.T) (*BookingRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewBookingRepository(&PostgresDB{DB: sqlxDB})

	return repo, mock, func() { db.Close() }
}

func testDay(s string) time.Time {
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestBookingCreate(t *testing.T) {
	repo, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()

	userID := uuid.New()
	vehicleID := uuid.New().String()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		booking := &models.Booking{
			UserID:     userID,
			VehicleID:  vehicleID,
			PickupDate: testDay("2024-06-10"),
			ReturnDate: testDay("2024-06-15"),
			TotalPrice: 500,
		}

		err := repo.Create(booking)
		require.NoError(t, err)
		assert.NotEmpty(t, booking.ID)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, now, booking.CreatedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exclusion violation maps to ErrConflict", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{
				Code:       "23P01",
				Constraint: "bookings_no_overlap",
			})

		err := repo.Create(&models.Booking{
			UserID:     userID,
			VehicleID:  vehicleID,
			PickupDate: testDay("2024-06-10"),
			ReturnDate: testDay("2024-06-15"),
		})
		assert.ErrorIs(t, err, models.ErrConflict)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unique session violation maps to ErrDuplicateSession", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{
				Code:       "23505",
				Constraint: "bookings_stripe_session_id_key",
			})

		err := repo.Create(&models.Booking{
			UserID:     userID,
			VehicleID:  vehicleID,
			PickupDate: testDay("2024-06-10"),
			ReturnDate: testDay("2024-06-15"),
		})
		assert.ErrorIs(t, err, models.ErrDuplicateSession)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unrelated error passes through", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("connection reset"))

		err := repo.Create(&models.Booking{
			UserID:     userID,
			VehicleID:  vehicleID,
			PickupDate: testDay("2024-06-10"),
			ReturnDate: testDay("2024-06-15"),
		})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrConflict)
		assert.NotErrorIs(t, err, models.ErrDuplicateSession)
	})
}

func TestCountOverlapping(t *testing.T) {
	repo, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()

	vehicleID := uuid.New().String()
	pickup := testDay("2024-06-10")
	drop := testDay("2024-06-15")

	t.Run("No overlap", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs(vehicleID, pickup, drop, "").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		count, err := repo.CountOverlapping(vehicleID, pickup, drop, "")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("Overlap found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs(vehicleID, pickup, drop, "").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		count, err := repo.CountOverlapping(vehicleID, pickup, drop, "")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Excludes booking under edit", func(t *testing.T) {
		excludeID := uuid.New().String()

		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs(vehicleID, pickup, drop, excludeID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		count, err := repo.CountOverlapping(vehicleID, pickup, drop, excludeID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestBookingGetByID(t *testing.T) {
	repo, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()

	t.Run("Missing booking maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM bookings`).
			WithArgs("missing-id").
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetByID("missing-id")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, booking)
	})

	t.Run("Found", func(t *testing.T) {
		bookingID := uuid.New().String()
		now := time.Now()

		mock.ExpectQuery(`SELECT .+ FROM bookings`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "vehicle_id", "pickup_date", "return_date",
				"total_price", "deposit_amount", "payment_status",
				"stripe_session_id", "stripe_payment_intent_id",
				"created_at", "updated_at",
			}).AddRow(
				bookingID, uuid.New(), uuid.New().String(), testDay("2024-06-10"), testDay("2024-06-15"),
				500.0, nil, "pending",
				nil, nil,
				now, now,
			))

		booking, err := repo.GetByID(bookingID)
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, bookingID, booking.ID)
		assert.Nil(t, booking.DepositAmount)
	})
}

func TestGetBySessionID(t *testing.T) {
	repo, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()

	t.Run("Not found returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM bookings`).
			WithArgs("cs_missing").
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetBySessionID("cs_missing")
		require.NoError(t, err)
		assert.Nil(t, booking)
	})

	t.Run("Found", func(t *testing.T) {
		bookingID := uuid.New().String()
		userID := uuid.New()
		vehicleID := uuid.New().String()
		now := time.Now()

		mock.ExpectQuery(`SELECT .+ FROM bookings`).
			WithArgs("cs_test_123").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "vehicle_id", "pickup_date", "return_date",
				"total_price", "deposit_amount", "payment_status",
				"stripe_session_id", "stripe_payment_intent_id",
				"created_at", "updated_at",
			}).AddRow(
				bookingID, userID, vehicleID, testDay("2024-06-10"), testDay("2024-06-15"),
				500.0, 75.0, "paid",
				"cs_test_123", "pi_test_123",
				now, now,
			))

		booking, err := repo.GetBySessionID("cs_test_123")
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, bookingID, booking.ID)
		assert.True(t, booking.IsPaid())
		require.NotNil(t, booking.DepositAmount)
		assert.Equal(t, 75.0, *booking.DepositAmount)
		require.NotNil(t, booking.StripeSessionID)
		assert.Equal(t, "cs_test_123", *booking.StripeSessionID)
	})
}

func TestUpdateDates(t *testing.T) {
	repo, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()

	bookingID := uuid.New().String()
	pickup := testDay("2024-07-01")
	drop := testDay("2024-07-05")

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, pickup, drop, 400.0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateDates(bookingID, pickup, drop, 400.0)
		assert.NoError(t, err)
	})

	t.Run("Exclusion violation maps to ErrConflict", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, pickup, drop, 400.0).
			WillReturnError(&pq.Error{
				Code:       "23P01",
				Constraint: "bookings_no_overlap",
			})

		err := repo.UpdateDates(bookingID, pickup, drop, 400.0)
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("Missing booking", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, pickup, drop, 400.0).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateDates(bookingID, pickup, drop, 400.0)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestMarkRefunded(t *testing.T) {
	repo, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()

	bookingID := uuid.New().String()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkRefunded(bookingID))
	})

	t.Run("Missing booking", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.MarkRefunded(bookingID), models.ErrNotFound)
	})
}
