package mailer

import (
	"github.com/sirupsen/logrus"
)

// DevMailer logs email instead of sending it. Used when MAIL_MODE=dev so
// local development does not need Mailjet credentials.
type DevMailer struct {
	logger *logrus.Logger
}

// NewDevMailer creates a logging-only mailer
func NewDevMailer(logger *logrus.Logger) *DevMailer {
	return &DevMailer{logger: logger}
}

// Send logs the email instead of delivering it
func (m *DevMailer) Send(toEmail, toName, subject, textBody, htmlBody string) error {
	m.logger.WithFields(logrus.Fields{
		"to":      toEmail,
		"subject": subject,
		"body":    textBody,
	}).Info("DEV MODE: email not sent")
	return nil
}

// GetName returns the name of the mailer implementation
func (m *DevMailer) GetName() string {
	return "dev"
}
