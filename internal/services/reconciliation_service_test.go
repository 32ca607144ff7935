package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

func newReconciliationFixture(t *testing.T, refundFails bool) (*ReconciliationService, sqlmock.Sqlmock, *int) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrusDiscard()
	auditRepo := database.NewWebhookAuditRepository(&database.PostgresDB{DB: sqlxDB}, logger)

	refundCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refundCalls++
		if refundFails {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"type": "api_error", "message": "still failing"}}`))
			return
		}
		w.Write([]byte(`{"id": "re_1", "status": "succeeded"}`))
	}))
	t.Cleanup(server.Close)

	stripeClient := stripe.NewClient(&stripe.Config{
		SecretKey:  "sk_test_123",
		APIBaseURL: server.URL,
	}, logger)

	return NewReconciliationService(auditRepo, stripeClient, logger), mock, &refundCalls
}

func unresolvedAuditRows(paymentIntent interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "event_id", "event_type", "session_id", "payment_intent_id",
		"outcome", "booking_id", "error_message", "ip_address", "user_agent",
		"resolved", "created_at",
	}).AddRow(
		uuid.New(), "evt_1", "checkout.session.completed", "cs_1", paymentIntent,
		"refund_failed", nil, "refund unavailable", nil, nil,
		false, time.Now(),
	)
}

func TestReconciliationRun(t *testing.T) {
	t.Run("Retries and resolves a parked refund", func(t *testing.T) {
		svc, mock, refundCalls := newReconciliationFixture(t, false)

		mock.ExpectQuery(`(?s)SELECT .+ FROM webhook_audits.+WHERE NOT resolved`).
			WillReturnRows(unresolvedAuditRows("pi_1"))
		mock.ExpectExec(`UPDATE webhook_audits SET resolved`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		svc.Run()

		assert.Equal(t, 1, *refundCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed retry stays unresolved", func(t *testing.T) {
		svc, mock, refundCalls := newReconciliationFixture(t, true)

		mock.ExpectQuery(`(?s)SELECT .+ FROM webhook_audits.+WHERE NOT resolved`).
			WillReturnRows(unresolvedAuditRows("pi_1"))

		svc.Run()

		// Refund was attempted but no resolve was recorded
		assert.Equal(t, 1, *refundCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing payment intent is skipped", func(t *testing.T) {
		svc, mock, refundCalls := newReconciliationFixture(t, false)

		mock.ExpectQuery(`(?s)SELECT .+ FROM webhook_audits.+WHERE NOT resolved`).
			WillReturnRows(unresolvedAuditRows(nil))

		svc.Run()

		assert.Equal(t, 0, *refundCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing to do", func(t *testing.T) {
		svc, mock, refundCalls := newReconciliationFixture(t, false)

		mock.ExpectQuery(`(?s)SELECT .+ FROM webhook_audits.+WHERE NOT resolved`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "event_id", "event_type", "session_id", "payment_intent_id",
				"outcome", "booking_id", "error_message", "ip_address", "user_agent",
				"resolved", "created_at",
			}))

		svc.Run()

		assert.Equal(t, 0, *refundCalls)
	})
}
