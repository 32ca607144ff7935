package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/events"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

// EventPublisher pushes availability-change notifications. Nil disables
// publishing.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ClientInfo carries request attribution for the audit trail
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ConfirmationService completes the paid booking flow. It consumes Stripe
// webhook events, re-validates availability against current state, and either
// creates the paid booking or refunds the deposit when the dates were taken
// while the customer was paying.
//
// Error contract for the HTTP handler: ErrInvalidSignature means reject with
// no state change; any other error happened before a payment decision was
// recorded, so the handler should return 5xx and let Stripe redeliver. A nil
// return means the event is fully handled and must be acknowledged, even if
// the outcome was a refund or a refund failure.
type ConfirmationService struct {
	bookingRepo  *database.BookingRepository
	auditRepo    *database.WebhookAuditRepository
	availability *AvailabilityService
	payments     *stripe.Client
	publisher    EventPublisher
	logger       *logrus.Logger
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(
	bookingRepo *database.BookingRepository,
	auditRepo *database.WebhookAuditRepository,
	availability *AvailabilityService,
	payments *stripe.Client,
	publisher EventPublisher,
	logger *logrus.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		bookingRepo:  bookingRepo,
		auditRepo:    auditRepo,
		availability: availability,
		payments:     payments,
		publisher:    publisher,
		logger:       logger,
	}
}

// HandleWebhook processes one raw webhook delivery. payload must be the body
// exactly as received; signature verification fails on any re-encoding.
func (s *ConfirmationService) HandleWebhook(payload []byte, sigHeader string, client ClientInfo) error {
	event, err := stripe.ConstructEvent(payload, sigHeader, s.payments.WebhookSecret())
	if err != nil {
		s.logger.WithError(err).Warn("Webhook rejected")
		return err
	}

	if event.Type != stripe.EventTypeCheckoutCompleted {
		s.logger.WithField("event_type", event.Type).Debug("Ignoring webhook event type")
		s.audit(event, models.WebhookOutcomeIgnored, nil, nil, true, client)
		return nil
	}

	// Exact-match dedup on event id. Session-level dedup below catches the
	// same checkout arriving under a different event id.
	processed, err := s.auditRepo.HasProcessedEvent(event.ID)
	if err != nil {
		return err
	}
	if processed {
		s.logger.WithField("event_id", event.ID).Info("Webhook event already processed")
		return nil
	}

	session := event.Data.Object

	intent, err := parseCheckoutMetadata(&session)
	if err != nil {
		// The signature checked out but the metadata is not ours. Redelivery
		// cannot fix this, so record it and acknowledge.
		msg := err.Error()
		s.logger.WithError(err).WithField("session_id", session.ID).Error("Webhook metadata unusable")
		s.audit(event, models.WebhookOutcomeIgnored, nil, &msg, true, client)
		return nil
	}

	existing, err := s.bookingRepo.GetBySessionID(session.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Redelivery after we already confirmed this session. Never treat it
		// as a conflict: the overlapping booking is our own.
		s.logger.WithFields(logrus.Fields{
			"session_id": session.ID,
			"booking_id": existing.ID,
		}).Info("Duplicate webhook for confirmed session")
		s.audit(event, models.WebhookOutcomeDuplicate, &existing.ID, nil, true, client)
		return nil
	}

	available, err := s.availability.IsAvailable(intent.VehicleID, intent.Pickup, intent.Drop)
	if err != nil {
		return err
	}
	if !available {
		return s.refundLostRace(event, &session, client)
	}

	deposit := float64(intent.DepositCents) / 100
	booking := &models.Booking{
		UserID:                intent.UserID,
		VehicleID:             intent.VehicleID,
		PickupDate:            intent.Pickup,
		ReturnDate:            intent.Drop,
		TotalPrice:            intent.TotalPrice,
		DepositAmount:         &deposit,
		PaymentStatus:         models.PaymentStatusPaid,
		StripeSessionID:       &session.ID,
		StripePaymentIntentID: &session.PaymentIntent,
	}

	switch err := s.bookingRepo.Create(booking); {
	case err == nil:
	case errors.Is(err, models.ErrConflict):
		// A racing writer inserted first between our check and our insert.
		return s.refundLostRace(event, &session, client)
	case errors.Is(err, models.ErrDuplicateSession):
		s.logger.WithField("session_id", session.ID).Info("Concurrent redelivery already confirmed session")
		s.audit(event, models.WebhookOutcomeDuplicate, nil, nil, true, client)
		return nil
	default:
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"vehicle_id": booking.VehicleID,
		"session_id": session.ID,
	}).Info("Booking confirmed from payment webhook")

	s.publishBooked(booking)
	s.audit(event, models.WebhookOutcomeBooked, &booking.ID, nil, true, client)
	return nil
}

// refundLostRace compensates a payment whose dates were taken first. The
// provider is acknowledged either way; a failed refund is parked unresolved
// for the reconciliation job.
func (s *ConfirmationService) refundLostRace(event *stripe.Event, session *stripe.EventSession, client ClientInfo) error {
	logger := s.logger.WithFields(logrus.Fields{
		"session_id":     session.ID,
		"payment_intent": session.PaymentIntent,
	})
	logger.Warn("Availability lost before payment confirmed, refunding deposit")

	if _, err := s.payments.RefundPaymentIntent(session.PaymentIntent); err != nil {
		msg := err.Error()
		logger.WithError(err).Error("Refund failed, queued for reconciliation")
		s.audit(event, models.WebhookOutcomeRefundFailed, nil, &msg, false, client)
		return nil
	}

	s.audit(event, models.WebhookOutcomeRefunded, nil, nil, true, client)
	return nil
}

func (s *ConfirmationService) publishBooked(booking *models.Booking) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.publisher.PublishJSON(ctx, events.KeyVehicleBooked, events.VehicleBooked{
		BookingID:  booking.ID,
		VehicleID:  booking.VehicleID,
		PickupDate: booking.PickupDate.Format("2006-01-02"),
		ReturnDate: booking.ReturnDate.Format("2006-01-02"),
	})
	if err != nil {
		// Notification only. The booking is already durable.
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to publish booking event")
	}
}

func (s *ConfirmationService) audit(event *stripe.Event, outcome models.WebhookOutcome, bookingID, errMsg *string, resolved bool, client ClientInfo) {
	audit := &models.WebhookAudit{
		EventID:      event.ID,
		EventType:    event.Type,
		Outcome:      outcome,
		BookingID:    bookingID,
		ErrorMessage: errMsg,
		Resolved:     resolved,
	}
	if event.Data.Object.ID != "" {
		audit.SessionID = &event.Data.Object.ID
	}
	if event.Data.Object.PaymentIntent != "" {
		audit.PaymentIntentID = &event.Data.Object.PaymentIntent
	}
	if client.IPAddress != "" {
		audit.IPAddress = &client.IPAddress
	}
	if client.UserAgent != "" {
		audit.UserAgent = &client.UserAgent
	}

	// Log already reports failures; the webhook outcome stands regardless.
	_ = s.auditRepo.Log(audit)
}

// checkoutIntent is the booking request reconstructed from session metadata
type checkoutIntent struct {
	UserID       uuid.UUID
	VehicleID    string
	Pickup       time.Time
	Drop         time.Time
	TotalPrice   float64
	DepositCents int64
}

// parseCheckoutMetadata rebuilds the checkout intent from the metadata
// echoed back by Stripe. Treated as untrusted even though the signature
// already verified.
func parseCheckoutMetadata(session *stripe.EventSession) (*checkoutIntent, error) {
	userID, err := uuid.Parse(session.Metadata[metaUserID])
	if err != nil {
		return nil, models.ErrInvalidRange
	}

	vehicleID := session.Metadata[metaVehicleID]
	if _, err := uuid.Parse(vehicleID); err != nil {
		return nil, models.ErrInvalidRange
	}

	pickup, drop, err := models.ParseDateRange(session.Metadata[metaPickupDate], session.Metadata[metaReturnDate])
	if err != nil {
		return nil, err
	}

	totalPrice, err := strconv.ParseFloat(session.Metadata[metaTotalPrice], 64)
	if err != nil {
		return nil, models.ErrInvalidRange
	}

	depositCents, err := strconv.ParseInt(session.Metadata[metaDepositCents], 10, 64)
	if err != nil {
		return nil, models.ErrInvalidRange
	}

	return &checkoutIntent{
		UserID:       userID,
		VehicleID:    vehicleID,
		Pickup:       pickup,
		Drop:         drop,
		TotalPrice:   totalPrice,
		DepositCents: depositCents,
	}, nil
}
