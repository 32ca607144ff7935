package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abyrenters/rental-backend/internal/config"
	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/events"
	"github.com/abyrenters/rental-backend/internal/handlers"
	"github.com/abyrenters/rental-backend/internal/middleware"
	"github.com/abyrenters/rental-backend/internal/services"
	"github.com/abyrenters/rental-backend/pkg/jwt"
	"github.com/abyrenters/rental-backend/pkg/mailer"
	"github.com/abyrenters/rental-backend/pkg/stripe"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Aby Renters backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	vehicleRepo := database.NewVehicleRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	otpRepo := database.NewOTPRepository(db)
	auditRepo := database.NewWebhookAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	var mail mailer.Mailer
	if cfg.Mail.Mode == "dev" {
		logger.Info("Mailer in development mode (no actual email will be sent)")
		mail = mailer.NewDevMailer(logger)
	} else {
		mail = mailer.NewMailjetMailer(mailer.MailjetConfig{
			APIKey:    cfg.Mail.APIKey,
			APISecret: cfg.Mail.APISecret,
			FromEmail: cfg.Mail.FromEmail,
			FromName:  cfg.Mail.FromName,
		})
		logger.Info("Mailjet mailer initialized")
	}

	stripeClient := stripe.NewClient(&stripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}, logger)
	if !stripeClient.IsConfigured() {
		logger.Warn("Stripe credentials missing, paid bookings will fail")
	}

	var publisher services.EventPublisher
	if cfg.AMQP.URL != "" {
		p, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.WithError(err).Warn("Event publisher unavailable, notifications disabled")
		} else {
			defer p.Close()
			publisher = p
			logger.Info("Event publisher connected")
		}
	}

	uploadService, err := services.NewUploadService(cfg.Cloudinary, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize upload service: %v", err)
	}

	availabilityService := services.NewAvailabilityService(bookingRepo, logger)
	otpService := services.NewOTPService(otpRepo, mail, cfg.OTP, logger)
	vehicleService := services.NewVehicleService(vehicleRepo, availabilityService, logger)
	bookingService := services.NewBookingService(bookingRepo, vehicleRepo, availabilityService, logger)
	checkoutService := services.NewCheckoutService(vehicleRepo, availabilityService, stripeClient, logger)
	confirmationService := services.NewConfirmationService(
		bookingRepo, auditRepo, availabilityService, stripeClient, publisher, logger,
	)

	reconciliationService := services.NewReconciliationService(auditRepo, stripeClient, logger)
	if err := reconciliationService.Start(); err != nil {
		logger.Fatalf("Failed to start reconciliation job: %v", err)
	}
	logger.Info("Refund reconciliation job started")

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		userRepo, otpService, jwtService, mail,
		cfg.Google.ClientID, cfg.Mail.ResetURL, logger,
	)
	vehicleHandler := handlers.NewVehicleHandler(vehicleService, uploadService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(checkoutService, confirmationService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/verify-otp", authHandler.VerifyOTP)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)

			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService, logger))
			{
				protected.GET("/me", authHandler.GetProfile)
			}
		}

		// Vehicle catalog routes
		vehicles := v1.Group("/vehicles")
		{
			vehicles.GET("", vehicleHandler.List)
			vehicles.GET("/:id", vehicleHandler.Get)
			vehicles.POST("/search", vehicleHandler.Search)

			vehiclesProtected := vehicles.Group("")
			vehiclesProtected.Use(middleware.AuthMiddleware(jwtService, logger))
			{
				vehiclesProtected.POST("/:id/bookings", bookingHandler.Book)
			}
		}

		// Booking routes (all protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService, logger))
		{
			bookings.GET("", bookingHandler.ListMine)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.PUT("/:id/dates", bookingHandler.UpdateDates)
			bookings.DELETE("/:id", bookingHandler.Cancel)
		}

		// Payment routes. The webhook is public: Stripe authenticates with
		// the signature header, not a JWT.
		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", paymentHandler.Webhook)

			paymentsProtected := payments.Group("")
			paymentsProtected.Use(middleware.AuthMiddleware(jwtService, logger))
			{
				paymentsProtected.POST("/checkout", paymentHandler.CreateCheckout)
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService, logger), middleware.RequireAdmin())
		{
			admin.POST("/vehicles", vehicleHandler.Register)
			admin.PATCH("/vehicles/:id/availability", vehicleHandler.SetAvailability)
			admin.POST("/reconcile-refunds", func(c *gin.Context) {
				reconciliationService.Run()
				c.JSON(http.StatusOK, gin.H{"message": "refund reconciliation triggered"})
			})
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	reconciliationService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if user, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = user.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
