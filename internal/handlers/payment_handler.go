package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/middleware"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/internal/services"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

// PaymentHandler handles deposit checkout and the Stripe webhook
type PaymentHandler struct {
	checkoutService     *services.CheckoutService
	confirmationService *services.ConfirmationService
	logger              *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	checkoutService *services.CheckoutService,
	confirmationService *services.ConfirmationService,
	logger *logrus.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		checkoutService:     checkoutService,
		confirmationService: confirmationService,
		logger:              logger,
	}
}

// CreateCheckout starts the deposit payment flow and returns the hosted
// checkout URL. No booking exists until the webhook confirms payment.
// POST /api/v1/payments/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.checkoutService.CreateCheckout(userCtx.UserID, userCtx.Email, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Webhook receives Stripe events. The raw body must reach signature
// verification untouched, so this endpoint never uses JSON binding.
//
// Status contract: 400 rejects a bad signature with no state change, 5xx
// asks Stripe to redeliver, 200 acknowledges a fully handled event even
// when the outcome was a refund.
// POST /api/v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	client := middleware.ExtractClientInfo(c)
	err = h.confirmationService.HandleWebhook(payload, c.GetHeader("Stripe-Signature"), services.ClientInfo{
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, stripe.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	default:
		// Nothing was recorded yet; Stripe will redeliver.
		h.logger.WithError(err).Error("Webhook processing failed before resolution")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
	}
}
