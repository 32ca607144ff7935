// Package mailer delivers transactional email (OTP codes, password reset
// links) through Mailjet, with a dev-mode gateway that only logs.
package mailer

// Mailer defines the interface for sending transactional email
type Mailer interface {
	// Send sends one email to a single recipient
	Send(toEmail, toName, subject, textBody, htmlBody string) error

	// GetName returns the name of the mailer implementation
	GetName() string
}
