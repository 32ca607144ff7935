package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/models"
)

// WebhookAuditRepository records how each payment webhook event was
// resolved. Refund failures land here with resolved = FALSE and are retried
// by the reconciliation job.
type WebhookAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewWebhookAuditRepository creates a new WebhookAuditRepository
func NewWebhookAuditRepository(db DB, logger *logrus.Logger) *WebhookAuditRepository {
	return &WebhookAuditRepository{db: db, logger: logger}
}

// Log creates an audit entry. Payment events must not go unrecorded.
func (r *WebhookAuditRepository) Log(audit *models.WebhookAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO webhook_audits (
			id, event_id, event_type, session_id, payment_intent_id,
			outcome, booking_id, error_message, ip_address, user_agent,
			resolved, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.Exec(query,
		audit.ID, audit.EventID, audit.EventType, audit.SessionID, audit.PaymentIntentID,
		audit.Outcome, audit.BookingID, audit.ErrorMessage, audit.IPAddress, audit.UserAgent,
		audit.Resolved, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": audit.EventID,
			"outcome":  audit.Outcome,
		}).Error("Failed to log webhook audit")
		return fmt.Errorf("failed to log webhook audit: %w", err)
	}

	return nil
}

// HasProcessedEvent reports whether an event id has already been resolved.
// Exact-match deduplication for redelivered events.
func (r *WebhookAuditRepository) HasProcessedEvent(eventID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM webhook_audits WHERE event_id = $1 AND resolved`

	if err := r.db.Get(&count, query, eventID); err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}

	return count > 0, nil
}

// ListUnresolved returns audit entries whose compensation has not completed,
// oldest first
func (r *WebhookAuditRepository) ListUnresolved(limit int) ([]models.WebhookAudit, error) {
	query := `
		SELECT id, event_id, event_type, session_id, payment_intent_id,
			   outcome, booking_id, error_message, ip_address, user_agent,
			   resolved, created_at
		FROM webhook_audits
		WHERE NOT resolved
		ORDER BY created_at
		LIMIT $1
	`

	audits := []models.WebhookAudit{}
	if err := r.db.Select(&audits, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list unresolved audits: %w", err)
	}

	return audits, nil
}

// MarkResolved records that a pending compensation finally succeeded
func (r *WebhookAuditRepository) MarkResolved(id uuid.UUID, outcome models.WebhookOutcome) error {
	result, err := r.db.Exec(
		`UPDATE webhook_audits SET resolved = TRUE, outcome = $2 WHERE id = $1`,
		id, outcome,
	)
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
