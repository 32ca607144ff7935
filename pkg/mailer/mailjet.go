package mailer

import (
	"fmt"

	mailjet "github.com/mailjet/mailjet-apiv3-go/v4"
)

// MailjetConfig holds Mailjet API credentials and sender identity
type MailjetConfig struct {
	APIKey    string
	APISecret string
	FromEmail string
	FromName  string
}

// MailjetMailer sends email through the Mailjet v3.1 API
type MailjetMailer struct {
	client *mailjet.Client
	config MailjetConfig
}

// NewMailjetMailer creates a new Mailjet-backed mailer
func NewMailjetMailer(cfg MailjetConfig) *MailjetMailer {
	return &MailjetMailer{
		client: mailjet.NewMailjetClient(cfg.APIKey, cfg.APISecret),
		config: cfg,
	}
}

// Send sends one email to a single recipient
func (m *MailjetMailer) Send(toEmail, toName, subject, textBody, htmlBody string) error {
	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{
			{
				From: &mailjet.RecipientV31{
					Email: m.config.FromEmail,
					Name:  m.config.FromName,
				},
				To: &mailjet.RecipientsV31{
					{
						Email: toEmail,
						Name:  toName,
					},
				},
				Subject:  subject,
				TextPart: textBody,
				HTMLPart: htmlBody,
			},
		},
	}

	if _, err := m.client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("mailjet send failed: %w", err)
	}

	return nil
}

// GetName returns the name of the mailer implementation
func (m *MailjetMailer) GetName() string {
	return "mailjet"
}
