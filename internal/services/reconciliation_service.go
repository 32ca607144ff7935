package services

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

// reconcileBatchSize bounds how many unresolved audits one run retries
const reconcileBatchSize = 50

// ReconciliationService retries refunds that failed during webhook handling.
// Those events were acknowledged to Stripe, so this job is the only thing
// that will ever complete the compensation.
type ReconciliationService struct {
	auditRepo *database.WebhookAuditRepository
	payments  *stripe.Client
	logger    *logrus.Logger
	cron      *cron.Cron
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(auditRepo *database.WebhookAuditRepository, payments *stripe.Client, logger *logrus.Logger) *ReconciliationService {
	return &ReconciliationService{
		auditRepo: auditRepo,
		payments:  payments,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start schedules the reconciliation job
func (s *ReconciliationService) Start() error {
	if _, err := s.cron.AddFunc("@every 10m", s.Run); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Refund reconciliation job scheduled")
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish
func (s *ReconciliationService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Run retries every unresolved refund once. Failures stay unresolved and are
// picked up again on the next run.
func (s *ReconciliationService) Run() {
	audits, err := s.auditRepo.ListUnresolved(reconcileBatchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list unresolved webhook audits")
		return
	}
	if len(audits) == 0 {
		return
	}

	s.logger.WithField("count", len(audits)).Info("Retrying failed refunds")

	for _, audit := range audits {
		logger := s.logger.WithFields(logrus.Fields{
			"audit_id": audit.ID,
			"event_id": audit.EventID,
		})

		if audit.PaymentIntentID == nil || *audit.PaymentIntentID == "" {
			// Nothing to refund against. Needs a human.
			logger.Error("Unresolved audit has no payment intent")
			continue
		}

		if _, err := s.payments.RefundPaymentIntent(*audit.PaymentIntentID); err != nil {
			logger.WithError(err).Warn("Refund retry failed")
			continue
		}

		if err := s.auditRepo.MarkResolved(audit.ID, models.WebhookOutcomeRefunded); err != nil {
			logger.WithError(err).Error("Refund succeeded but audit not marked resolved")
			continue
		}

		logger.Info("Refund reconciled")
	}
}
