package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account. PasswordHash is nil for
// Google-only accounts.
type User struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        *string    `json:"-" db:"password_hash"`
	Role                string     `json:"role" db:"role"`
	GoogleID            *string    `json:"-" db:"google_id"`
	Picture             *string    `json:"picture,omitempty" db:"picture"`
	IsVerified          bool       `json:"is_verified" db:"is_verified"`
	ResetTokenHash      *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin checks whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Validate validates the signup request
func (r *SignupRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if len(r.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyOTPRequest represents the OTP verification request body
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// GoogleSignInRequest carries the ID token issued by Google Sign-In
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// ForgotPasswordRequest represents the forgot-password request body
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents the reset-password request body
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// OTPVerification represents a pending email OTP challenge
type OTPVerification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	OTPCode   string    `json:"-" db:"otp_code"`
	Attempts  int       `json:"attempts" db:"attempts"`
	Verified  bool      `json:"verified" db:"verified"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IPAddress *string   `json:"-" db:"ip_address"`
	UserAgent *string   `json:"-" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
