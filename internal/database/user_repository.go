package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abyrenters/rental-backend/internal/models"
)

// UserRepository handles database operations for the users table
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, google_id, picture, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	err := r.db.QueryRow(
		query,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Role, user.GoogleID, user.Picture, user.IsVerified,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email, nil when absent
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := selectUserColumns + ` WHERE email = $1`

	user, err := r.scanUser(r.db.QueryRow(query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	query := selectUserColumns + ` WHERE id = $1`

	user, err := r.scanUser(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return user, err
}

// GetByGoogleID retrieves a user by Google subject, nil when absent
func (r *UserRepository) GetByGoogleID(googleID string) (*models.User, error) {
	query := selectUserColumns + ` WHERE google_id = $1`

	user, err := r.scanUser(r.db.QueryRow(query, googleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// AttachGoogleAccount links a Google subject and picture to an existing user
func (r *UserRepository) AttachGoogleAccount(id uuid.UUID, googleID, picture string) error {
	_, err := r.db.Exec(
		`UPDATE users SET google_id = $2, picture = $3, is_verified = TRUE, updated_at = NOW() WHERE id = $1`,
		id, googleID, picture,
	)
	return err
}

// MarkVerified flags the account as verified after OTP confirmation
func (r *UserRepository) MarkVerified(email string) error {
	result, err := r.db.Exec(
		`UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE email = $1`,
		email,
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

// SetResetToken stores the hashed password-reset token and its expiry
func (r *UserRepository) SetResetToken(email, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = NOW() WHERE email = $1`,
		email, tokenHash, expiresAt,
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

// GetByResetToken retrieves a user by a non-expired reset token hash
func (r *UserRepository) GetByResetToken(tokenHash string) (*models.User, error) {
	query := selectUserColumns + ` WHERE reset_token_hash = $1 AND reset_token_expires_at > NOW()`

	user, err := r.scanUser(r.db.QueryRow(query, tokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// UpdatePassword replaces the password hash and clears any reset token
func (r *UserRepository) UpdatePassword(id uuid.UUID, passwordHash string) error {
	_, err := r.db.Exec(
		`UPDATE users
		 SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = NOW()
		 WHERE id = $1`,
		id, passwordHash,
	)
	return err
}

const selectUserColumns = `
	SELECT id, name, email, password_hash, role, google_id, picture,
		   is_verified, reset_token_hash, reset_token_expires_at,
		   created_at, updated_at
	FROM users`

func (r *UserRepository) scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var passwordHash sql.NullString
	var googleID sql.NullString
	var picture sql.NullString
	var resetTokenHash sql.NullString
	var resetTokenExpiresAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &passwordHash, &user.Role,
		&googleID, &picture, &user.IsVerified, &resetTokenHash, &resetTokenExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}
	if picture.Valid {
		user.Picture = &picture.String
	}
	if resetTokenHash.Valid {
		user.ResetTokenHash = &resetTokenHash.String
	}
	if resetTokenExpiresAt.Valid {
		user.ResetTokenExpiresAt = &resetTokenExpiresAt.Time
	}

	return user, nil
}
