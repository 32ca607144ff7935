package services

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/config"
	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/pkg/mailer"
)

// OTPService issues and verifies email verification codes
type OTPService struct {
	otpRepo *database.OTPRepository
	mail    mailer.Mailer
	config  config.OTPConfig
	logger  *logrus.Logger
}

// NewOTPService creates a new OTPService
func NewOTPService(otpRepo *database.OTPRepository, mail mailer.Mailer, cfg config.OTPConfig, logger *logrus.Logger) *OTPService {
	return &OTPService{
		otpRepo: otpRepo,
		mail:    mail,
		config:  cfg,
		logger:  logger,
	}
}

// GenerateAndSend creates a fresh OTP challenge for the email and delivers
// the code. Any previous challenge for the address is superseded.
func (s *OTPService) GenerateAndSend(email, name string, client ClientInfo) error {
	code, err := s.generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	otp := &models.OTPVerification{
		Email:     email,
		OTPCode:   code,
		ExpiresAt: time.Now().Add(time.Duration(s.config.ExpiryMinutes) * time.Minute),
	}
	if client.IPAddress != "" {
		otp.IPAddress = &client.IPAddress
	}
	if client.UserAgent != "" {
		otp.UserAgent = &client.UserAgent
	}

	if err := s.otpRepo.Create(otp); err != nil {
		return err
	}

	subject := "Your Aby Renters verification code"
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, s.config.ExpiryMinutes)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, s.config.ExpiryMinutes)

	if err := s.mail.Send(email, name, subject, text, html); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"email":  email,
			"mailer": s.mail.GetName(),
		}).Error("Failed to send OTP email")
		return models.ErrUpstream
	}

	s.logger.WithField("email", email).Info("OTP sent")
	return nil
}

// Verify checks a submitted code against the latest challenge for the email.
// Expired, exhausted or wrong codes all return ErrUnauthorized.
func (s *OTPService) Verify(email, code string) error {
	otp, err := s.otpRepo.GetLatestByEmail(email)
	if err != nil {
		return err
	}
	if otp == nil || otp.Verified {
		return models.ErrUnauthorized
	}

	if time.Now().After(otp.ExpiresAt) {
		return models.ErrUnauthorized
	}
	if otp.Attempts >= s.config.MaxAttempts {
		s.logger.WithField("email", email).Warn("OTP attempts exhausted")
		return models.ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(otp.OTPCode), []byte(code)) != 1 {
		if err := s.otpRepo.IncrementAttempts(otp.ID); err != nil {
			s.logger.WithError(err).Error("Failed to record OTP attempt")
		}
		return models.ErrUnauthorized
	}

	return s.otpRepo.MarkVerified(otp.ID)
}

// generateCode produces a zero-padded numeric code of the configured length
func (s *OTPService) generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < s.config.Length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", s.config.Length, n), nil
}
