package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/middleware"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/internal/services"
)

const maxVehiclePhotos = 8

// VehicleHandler handles catalog endpoints
type VehicleHandler struct {
	vehicleService *services.VehicleService
	uploadService  *services.UploadService
	logger         *logrus.Logger
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(vehicleService *services.VehicleService, uploadService *services.UploadService, logger *logrus.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
		uploadService:  uploadService,
		logger:         logger,
	}
}

// Register adds a vehicle to the catalog. Photos arrive as multipart file
// parts named "photos" and are stored in Cloudinary before the row is
// written.
// POST /api/v1/admin/vehicles
func (h *VehicleHandler) Register(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.RegisterVehicleRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	files := form.File["photos"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one photo is required"})
		return
	}
	if len(files) > maxVehiclePhotos {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many photos"})
		return
	}

	photoURLs := make([]string, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable photo upload"})
			return
		}

		url, err := h.uploadService.UploadPhoto(c.Request.Context(), file, fileHeader.Filename)
		file.Close()
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		photoURLs = append(photoURLs, url)
	}

	vehicle, err := h.vehicleService.Register(userCtx.UserID, &req, photoURLs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, vehicle)
}

// Get returns one vehicle, with a price quote when pickup_date and
// return_date query params are present
// GET /api/v1/vehicles/:id
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicle, quote, err := h.vehicleService.GetWithQuote(
		c.Param("id"),
		c.Query("pickup_date"),
		c.Query("return_date"),
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := gin.H{"vehicle": vehicle}
	if quote != nil {
		response["quote"] = gin.H{
			"days":        quote.Days,
			"total_price": quote.TotalPrice,
			"deposit":     quote.Deposit(),
		}
	}

	c.JSON(http.StatusOK, response)
}

// List returns a page of the catalog
// GET /api/v1/vehicles
func (h *VehicleHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	vehicles, err := h.vehicleService.List(limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// Search returns vehicles in a category free over the requested dates
// POST /api/v1/vehicles/search
func (h *VehicleHandler) Search(c *gin.Context) {
	var req models.SearchVehiclesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summaries, err := h.vehicleService.SearchAvailable(&req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": summaries})
}

// SetAvailability toggles the listing flag
// PATCH /api/v1/admin/vehicles/:id/availability
func (h *VehicleHandler) SetAvailability(c *gin.Context) {
	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vehicleService.SetAvailability(c.Param("id"), *req.Available); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "availability updated"})
}
