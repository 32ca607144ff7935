package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"

	"github.com/abyrenters/rental-backend/internal/database"
	"github.com/abyrenters/rental-backend/internal/middleware"
	"github.com/abyrenters/rental-backend/internal/models"
	"github.com/abyrenters/rental-backend/internal/services"
	"github.com/abyrenters/rental-backend/pkg/jwt"
	"github.com/abyrenters/rental-backend/pkg/mailer"
)

const resetTokenTTL = time.Hour

// AuthHandler handles signup, login, OTP verification, Google Sign-In and
// password reset
type AuthHandler struct {
	userRepo       *database.UserRepository
	otpService     *services.OTPService
	jwtService     *jwt.Service
	mail           mailer.Mailer
	googleClientID string
	resetBaseURL   string
	logger         *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userRepo *database.UserRepository,
	otpService *services.OTPService,
	jwtService *jwt.Service,
	mail mailer.Mailer,
	googleClientID string,
	resetBaseURL string,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		userRepo:       userRepo,
		otpService:     otpService,
		jwtService:     jwtService,
		mail:           mail,
		googleClientID: googleClientID,
		resetBaseURL:   resetBaseURL,
		logger:         logger,
	}
}

// Signup registers a new account and sends a verification code
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.userRepo.GetByEmail(req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	passwordHash := string(hash)
	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: &passwordHash,
		Role:         models.RoleUser,
	}

	if err := h.userRepo.Create(user); err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := middleware.ExtractClientInfo(c)
	if err := h.otpService.GenerateAndSend(user.Email, user.Name, services.ClientInfo{
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "account created, verification code sent",
		"user_id": user.ID,
	})
}

// VerifyOTP confirms the emailed code and activates the account
// POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.otpService.Verify(req.Email, req.OTP); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired code"})
		return
	}

	if err := h.userRepo.MarkVerified(req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.userRepo.GetByEmail(req.Email)
	if err != nil || user == nil {
		respondError(c, h.logger, err)
		return
	}

	h.issueTokens(c, user)
}

// Login authenticates with email and password
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil || user.PasswordHash == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "account not verified"})
		return
	}

	h.issueTokens(c, user)
}

// GoogleSignIn authenticates with a Google ID token, creating or linking the
// account as needed
// POST /api/v1/auth/google
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req models.GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := idtoken.Validate(c.Request.Context(), req.IDToken, h.googleClientID)
	if err != nil {
		h.logger.WithError(err).Debug("Google token validation failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid google token"})
		return
	}

	googleID := payload.Subject
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google token missing email"})
		return
	}

	user, err := h.userRepo.GetByGoogleID(googleID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if user == nil {
		// Link to an existing email account, or create a fresh verified one.
		user, err = h.userRepo.GetByEmail(email)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}

		if user != nil {
			if err := h.userRepo.AttachGoogleAccount(user.ID, googleID, picture); err != nil {
				respondError(c, h.logger, err)
				return
			}
		} else {
			user = &models.User{
				Name:       name,
				Email:      email,
				Role:       models.RoleUser,
				GoogleID:   &googleID,
				IsVerified: true,
			}
			if picture != "" {
				user.Picture = &picture
			}
			if err := h.userRepo.Create(user); err != nil {
				respondError(c, h.logger, err)
				return
			}
		}
	}

	h.issueTokens(c, user)
}

// Refresh exchanges a valid refresh token for a new token pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	user, err := h.userRepo.GetByID(claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.issueTokens(c, user)
}

// ForgotPassword emails a single-use password reset link. Always responds
// 200 so addresses cannot be probed.
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"message": "if the account exists, a reset link has been sent"}

	user, err := h.userRepo.GetByEmail(req.Email)
	if err != nil || user == nil {
		c.JSON(http.StatusOK, response)
		return
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		respondError(c, h.logger, err)
		return
	}
	token := hex.EncodeToString(raw)
	tokenHash := hashResetToken(token)

	if err := h.userRepo.SetResetToken(user.Email, tokenHash, time.Now().Add(resetTokenTTL)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	link := fmt.Sprintf("%s?token=%s", h.resetBaseURL, token)
	text := fmt.Sprintf("Reset your password: %s\nThe link expires in 1 hour.", link)
	html := fmt.Sprintf(`<p><a href="%s">Reset your password</a></p><p>The link expires in 1 hour.</p>`, link)

	if err := h.mail.Send(user.Email, user.Name, "Reset your Aby Renters password", text, html); err != nil {
		h.logger.WithError(err).WithField("email", user.Email).Error("Failed to send reset email")
	}

	c.JSON(http.StatusOK, response)
}

// ResetPassword sets a new password using the emailed token
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	user, err := h.userRepo.GetByResetToken(hashResetToken(token))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.userRepo.UpdatePassword(user.ID, string(hash)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// GetProfile returns the authenticated user's profile
// GET /api/v1/auth/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.userRepo.GetByID(userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) {
	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// hashResetToken hashes a reset token for at-rest storage so a leaked
// database row cannot be replayed
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
