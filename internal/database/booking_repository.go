package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/abyrenters/rental-backend/internal/models"
)

// Postgres constraint names on the bookings table (migrations/schema.sql)
const (
	constraintNoOverlap      = "bookings_no_overlap"
	constraintUniqueSession  = "bookings_stripe_session_id_key"
	pqCodeExclusionViolation = "23P01"
	pqCodeUniqueViolation    = "23505"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking. The overlap invariant is enforced by the store:
// a racing writer for the same vehicle and overlapping dates fails with an
// exclusion violation mapped to ErrConflict, and a redelivered checkout
// session fails with a unique violation mapped to ErrDuplicateSession.
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, vehicle_id, pickup_date, return_date,
			total_price, deposit_amount, payment_status,
			stripe_session_id, stripe_payment_intent_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = models.PaymentStatusPending
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.UserID, booking.VehicleID,
		booking.PickupDate, booking.ReturnDate,
		booking.TotalPrice, booking.DepositAmount, booking.PaymentStatus,
		booking.StripeSessionID, booking.StripePaymentIntentID,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	return translateConstraintError(err)
}

// CountOverlapping counts bookings of a vehicle whose closed interval
// [pickup_date, return_date] intersects [pickup, drop]. Refunded bookings no
// longer hold their dates. excludeBookingID skips a booking being edited so
// it does not conflict with itself; pass "" otherwise.
func (r *BookingRepository) CountOverlapping(vehicleID string, pickup, drop time.Time, excludeBookingID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE vehicle_id = $1
		  AND pickup_date <= $3
		  AND return_date >= $2
		  AND payment_status != 'refunded'
		  AND ($4 = '' OR id != $4::uuid)
	`

	var count int
	err := r.db.Get(&count, query, vehicleID, pickup, drop, excludeBookingID)
	return count, err
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := selectBookingColumns + ` WHERE id = $1`
	booking, err := r.scanBooking(r.db.QueryRow(query, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return booking, err
}

// GetBySessionID retrieves the booking created for a Stripe checkout
// session, or nil if the session has not produced a booking yet.
func (r *BookingRepository) GetBySessionID(sessionID string) (*models.Booking, error) {
	query := selectBookingColumns + ` WHERE stripe_session_id = $1`
	booking, err := r.scanBooking(r.db.QueryRow(query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return booking, err
}

// GetByUserID retrieves all bookings for a user, newest first
func (r *BookingRepository) GetByUserID(userID uuid.UUID) ([]models.Booking, error) {
	query := selectBookingColumns + ` WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		booking, err := r.scanBookingRow(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

// UpdateDates moves a booking to a new date range. The exclusion constraint
// still applies, so a concurrent overlapping booking turns this into
// ErrConflict rather than a silent double-book.
func (r *BookingRepository) UpdateDates(bookingID string, pickup, drop time.Time, totalPrice float64) error {
	query := `
		UPDATE bookings
		SET pickup_date = $2, return_date = $3, total_price = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID, pickup, drop, totalPrice)
	if err != nil {
		return translateConstraintError(err)
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

// MarkRefunded flags a booking as refunded, releasing its dates
func (r *BookingRepository) MarkRefunded(bookingID string) error {
	query := `
		UPDATE bookings
		SET payment_status = 'refunded', updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, bookingID)
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

// Delete removes a booking; its dates become available again
func (r *BookingRepository) Delete(bookingID string) error {
	result, err := r.db.Exec(`DELETE FROM bookings WHERE id = $1`, bookingID)
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

const selectBookingColumns = `
	SELECT id, user_id, vehicle_id, pickup_date, return_date,
		   total_price, deposit_amount, payment_status,
		   stripe_session_id, stripe_payment_intent_id,
		   created_at, updated_at
	FROM bookings`

// scanBooking scans a single booking
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	return r.scanBookingRow(row)
}

func (r *BookingRepository) scanBookingRow(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var depositAmount sql.NullFloat64
	var sessionID sql.NullString
	var paymentIntentID sql.NullString

	err := row.Scan(
		&booking.ID, &booking.UserID, &booking.VehicleID,
		&booking.PickupDate, &booking.ReturnDate,
		&booking.TotalPrice, &depositAmount, &booking.PaymentStatus,
		&sessionID, &paymentIntentID,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if depositAmount.Valid {
		booking.DepositAmount = &depositAmount.Float64
	}
	if sessionID.Valid {
		booking.StripeSessionID = &sessionID.String
	}
	if paymentIntentID.Valid {
		booking.StripePaymentIntentID = &paymentIntentID.String
	}

	return booking, nil
}

// translateConstraintError maps Postgres constraint violations onto domain
// errors so services can branch on them.
func translateConstraintError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqCodeExclusionViolation && pqErr.Constraint == constraintNoOverlap:
			return models.ErrConflict
		case pqErr.Code == pqCodeUniqueViolation && pqErr.Constraint == constraintUniqueSession:
			return models.ErrDuplicateSession
		}
	}

	return err
}
