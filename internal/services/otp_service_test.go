package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyrenters/rental-backend/internal/config"
	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
)

// recordingMailer captures sent mail for assertions
type recordingMailer struct {
	to      []string
	bodies  []string
	failing bool
}

func (m *recordingMailer) Send(toEmail, toName, subject, textBody, htmlBody string) error {
	if m.failing {
		return assert.AnError
	}
	m.to = append(m.to, toEmail)
	m.bodies = append(m.bodies, textBody)
	return nil
}

func (m *recordingMailer) GetName() string { return "recording" }

func newOTPFixture(t *testing.T) (*OTPService, sqlmock.Sqlmock, *recordingMailer) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	otpRepo := database.NewOTPRepository(&database.PostgresDB{DB: sqlxDB})

	mail := &recordingMailer{}
	svc := NewOTPService(otpRepo, mail, config.OTPConfig{
		Length:        6,
		ExpiryMinutes: 10,
		MaxAttempts:   3,
	}, logrusDiscard())

	return svc, mock, mail
}

func otpRow(code string, attempts int, verified bool, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "otp_code", "attempts", "verified", "expires_at", "ip_address", "user_agent", "created_at",
	}).AddRow(
		uuid.New(), "renter@example.com", code, attempts, verified, expiresAt, nil, nil, time.Now(),
	)
}

func TestGenerateAndSend(t *testing.T) {
	svc, mock, mail := newOTPFixture(t)

	mock.ExpectQuery(`INSERT INTO otp_verifications`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	err := svc.GenerateAndSend("renter@example.com", "Renter", ClientInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	require.Len(t, mail.to, 1)
	assert.Equal(t, "renter@example.com", mail.to[0])
	assert.Regexp(t, `\d{6}`, mail.bodies[0])
}

func TestGenerateAndSendMailFailure(t *testing.T) {
	svc, mock, mail := newOTPFixture(t)
	mail.failing = true

	mock.ExpectQuery(`INSERT INTO otp_verifications`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	err := svc.GenerateAndSend("renter@example.com", "Renter", ClientInfo{})
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestVerifyOTP(t *testing.T) {
	future := time.Now().Add(10 * time.Minute)

	t.Run("Correct code", func(t *testing.T) {
		svc, mock, _ := newOTPFixture(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM otp_verifications`).
			WillReturnRows(otpRow("123456", 0, false, future))
		mock.ExpectExec(`UPDATE otp_verifications SET verified`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, svc.Verify("renter@example.com", "123456"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong code counts an attempt", func(t *testing.T) {
		svc, mock, _ := newOTPFixture(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM otp_verifications`).
			WillReturnRows(otpRow("123456", 0, false, future))
		mock.ExpectExec(`UPDATE otp_verifications SET attempts`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.ErrorIs(t, svc.Verify("renter@example.com", "000000"), models.ErrUnauthorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Expired code", func(t *testing.T) {
		svc, mock, _ := newOTPFixture(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM otp_verifications`).
			WillReturnRows(otpRow("123456", 0, false, time.Now().Add(-time.Minute)))

		assert.ErrorIs(t, svc.Verify("renter@example.com", "123456"), models.ErrUnauthorized)
	})

	t.Run("Attempts exhausted", func(t *testing.T) {
		svc, mock, _ := newOTPFixture(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM otp_verifications`).
			WillReturnRows(otpRow("123456", 3, false, future))

		assert.ErrorIs(t, svc.Verify("renter@example.com", "123456"), models.ErrUnauthorized)
	})

	t.Run("Already consumed", func(t *testing.T) {
		svc, mock, _ := newOTPFixture(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM otp_verifications`).
			WillReturnRows(otpRow("123456", 0, true, future))

		assert.ErrorIs(t, svc.Verify("renter@example.com", "123456"), models.ErrUnauthorized)
	})

	t.Run("No challenge on record", func(t *testing.T) {
		svc, mock, _ := newOTPFixture(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM otp_verifications`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "otp_code", "attempts", "verified", "expires_at", "ip_address", "user_agent", "created_at",
			}))

		assert.ErrorIs(t, svc.Verify("renter@example.com", "123456"), models.ErrUnauthorized)
	})
}
