package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvrmln/taskdeck-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// UserService provides business logic for account management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// Register validates the payload, hashes the password and persists a new
// credentials-provider account. The email is stored trimmed and lowercased.
func (s *UserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return models.User{}, validationErr("Name is required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, validationErr("Please enter a valid email.")
	}
	if err := checkPasswordPolicy(password); err != nil {
		return models.User{}, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM users WHERE email = ? COLLATE NOCASE", email).Scan(&exists)
	if err != nil {
		return models.User{}, fmt.Errorf("checking for existing user: %w", err)
	}
	if exists > 0 {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Provider:     models.ProviderCredentials,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, name, email, password_hash, provider) VALUES(?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.Provider)
	if err != nil {
		return models.User{}, fmt.Errorf("inserting user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies a user's credentials. Unknown email and wrong
// password collapse into the same error value; the real reason is logged.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = normalizeEmail(email)

	var user models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, provider, provider_id, image, created_at, updated_at FROM users WHERE email = ? COLLATE NOCASE",
		email)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Provider, &user.ProviderID, &user.Image, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug().Str("email", email).Msg("Login attempt for unknown email")
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug().Str("user_id", user.ID).Msg("Login attempt with wrong password")
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, provider, provider_id, image, created_at, updated_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email,
		&user.Provider, &user.ProviderID, &user.Image, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkPasswordPolicy enforces the minimum password shape: at least 8
// characters with one letter, one digit and one special character.
func checkPasswordPolicy(password string) error {
	if len(password) < 8 {
		return validationErr("Password must be at least 8 characters long.")
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasLetter {
		return validationErr("Password must contain at least one letter.")
	}
	if !hasDigit {
		return validationErr("Password must contain at least one number.")
	}
	if !hasSpecial {
		return validationErr("Password must contain at least one special character.")
	}
	return nil
}
