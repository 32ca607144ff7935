package services

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

type checkoutFixture struct {
	svc          *CheckoutService
	mock         sqlmock.Sqlmock
	stripeCalls  *int
	sessionForms *[]url.Values
	userID       uuid.UUID
	vehicleID    string
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgres := &database.PostgresDB{DB: sqlxDB}

	calls := 0
	forms := []url.Values{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		calls++
		forms = append(forms, r.PostForm)
		w.Write([]byte(`{"id": "cs_test_1", "url": "https://checkout.stripe.com/pay/cs_test_1"}`))
	}))
	t.Cleanup(server.Close)

	logger := logrusDiscard()
	stripeClient := stripe.NewClient(&stripe.Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		Currency:      "usd",
		SuccessURL:    "https://example.com/success",
		CancelURL:     "https://example.com/cancel",
		APIBaseURL:    server.URL,
	}, logger)

	bookingRepo := database.NewBookingRepository(postgres)
	vehicleRepo := database.NewVehicleRepository(postgres)
	availability := NewAvailabilityService(bookingRepo, logger)

	return &checkoutFixture{
		svc:          NewCheckoutService(vehicleRepo, availability, stripeClient, logger),
		mock:         mock,
		stripeCalls:  &calls,
		sessionForms: &forms,
		userID:       uuid.New(),
		vehicleID:    uuid.New().String(),
	}
}

func (f *checkoutFixture) expectVehicle(pricePerDay float64, available bool) {
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

func TestCreateCheckout(t *testing.T) {
	t.Run("Success carries booking intent in metadata", func(t *testing.T) {
		f := newCheckoutFixture(t)

		f.expectVehicle(100, true)
		f.mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).+FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		response, err := f.svc.CreateCheckout(f.userID, "renter@example.com", &models.CheckoutRequest{
			VehicleID:  f.vehicleID,
			PickupDate: "2024-06-10",
			ReturnDate: "2024-06-15",
		})
		require.NoError(t, err)

		assert.Equal(t, "cs_test_1", response.SessionID)
		assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", response.CheckoutURL)
		assert.Equal(t, 500.0, response.TotalPrice)
		assert.Equal(t, 75.0, response.Deposit)

		require.Equal(t, 1, *f.stripeCalls)
		form := (*f.sessionForms)[0]
		assert.Equal(t, "7500", form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, f.userID.String(), form.Get("metadata[user_id]"))
		assert.Equal(t, f.vehicleID, form.Get("metadata[vehicle_id]"))
		assert.Equal(t, "2024-06-10", form.Get("metadata[pickup_date]"))
		assert.Equal(t, "2024-06-15", form.Get("metadata[return_date]"))
		assert.Equal(t, "500.00", form.Get("metadata[total_price]"))
		assert.Equal(t, "7500", form.Get("metadata[deposit_cents]"))
		assert.Equal(t, "renter@example.com", form.Get("customer_email"))
	})

	t.Run("Dates taken", func(t *testing.T) {
		f := newCheckoutFixture(t)

		f.expectVehicle(100, true)
		f.mock.ExpectQuery(`(?s)SELECT COUNT\(\*\).+FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, err := f.svc.CreateCheckout(f.userID, "renter@example.com", &models.CheckoutRequest{
			VehicleID:  f.vehicleID,
			PickupDate: "2024-06-10",
			ReturnDate: "2024-06-15",
		})
		assert.ErrorIs(t, err, models.ErrConflict)

		// No session was created for unavailable dates
		assert.Equal(t, 0, *f.stripeCalls)
	})

	t.Run("Unknown vehicle", func(t *testing.T) {
		f := newCheckoutFixture(t)

		f.mock.ExpectQuery(`(?s)SELECT .+ FROM vehicles`).
			WillReturnError(sql.ErrNoRows)

		_, err := f.svc.CreateCheckout(f.userID, "renter@example.com", &models.CheckoutRequest{
			VehicleID:  f.vehicleID,
			PickupDate: "2024-06-10",
			ReturnDate: "2024-06-15",
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Inverted range", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.svc.CreateCheckout(f.userID, "renter@example.com", &models.CheckoutRequest{
			VehicleID:  f.vehicleID,
			PickupDate: "2024-06-15",
			ReturnDate: "2024-06-10",
		})
		assert.ErrorIs(t, err, models.ErrInvalidRange)
		assert.Equal(t, 0, *f.stripeCalls)
	})
}
