package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/middleware"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/internal/services"
)

// BookingHandler handles the direct booking path and booking lifecycle
// endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// Book creates a pending booking without payment
// POST /api/v1/vehicles/:id/bookings
func (h *BookingHandler) Book(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookingService.BookVehicle(userCtx.UserID, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListMine returns the caller's bookings
// GET /api/v1/bookings
func (h *BookingHandler) ListMine(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	bookings, err := h.bookingService.GetUserBookings(userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Get returns one booking the caller owns (admins can read any)
// GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	booking, err := h.bookingService.GetBooking(c.Param("id"), userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateDates moves a booking to new dates, repricing it
// PUT /api/v1/bookings/:id/dates
func (h *BookingHandler) UpdateDates(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.UpdateBookingDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookingService.UpdateDates(c.Param("id"), userCtx.UserID, userCtx.IsAdmin(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// Cancel deletes a booking, releasing its dates
// DELETE /api/v1/bookings/:id
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.bookingService.Cancel(c.Param("id"), userCtx.UserID, userCtx.IsAdmin()); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}
