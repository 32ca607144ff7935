package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/abyrenters/rental-backend/internal/models"
)

// OTPRepository handles database operations for the otp_verifications table
type OTPRepository struct {
	db DB
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a new OTP challenge
func (r *OTPRepository) Create(otp *models.OTPVerification) error {
	query := `
		INSERT INTO otp_verifications (id, email, otp_code, attempts, verified, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}

	err := r.db.QueryRow(
		query,
		otp.ID, otp.Email, otp.OTPCode, otp.Attempts, otp.Verified,
		otp.ExpiresAt, otp.IPAddress, otp.UserAgent,
	).Scan(&otp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}

	return nil
}

// GetLatestByEmail retrieves the most recent challenge for an email,
// nil when there is none
func (r *OTPRepository) GetLatestByEmail(email string) (*models.OTPVerification, error) {
	query := `
		SELECT id, email, otp_code, attempts, verified, expires_at, ip_address, user_agent, created_at
		FROM otp_verifications
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	otp := &models.OTPVerification{}
	var ipAddress sql.NullString
	var userAgent sql.NullString

	err := r.db.QueryRow(query, email).Scan(
		&otp.ID, &otp.Email, &otp.OTPCode, &otp.Attempts, &otp.Verified,
		&otp.ExpiresAt, &ipAddress, &userAgent, &otp.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if ipAddress.Valid {
		otp.IPAddress = &ipAddress.String
	}
	if userAgent.Valid {
		otp.UserAgent = &userAgent.String
	}

	return otp, nil
}

// IncrementAttempts bumps the failed-attempt counter
func (r *OTPRepository) IncrementAttempts(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE otp_verifications SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

// MarkVerified flags the challenge as consumed
func (r *OTPRepository) MarkVerified(id uuid.UUID) error {
	result, err := r.db.Exec(`UPDATE otp_verifications SET verified = TRUE WHERE id = $1`, id)
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

// DeleteByEmail removes all challenges for an email
func (r *OTPRepository) DeleteByEmail(email string) error {
	_, err := r.db.Exec(`DELETE FROM otp_verifications WHERE email = $1`, email)
	return err
}
