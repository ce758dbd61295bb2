// Package service provides authentication and event business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/studymate/studymate/internal/credentials"
	"github.com/studymate/studymate/internal/models"
	"github.com/studymate/studymate/internal/repository"
	"github.com/studymate/studymate/internal/sanitize"
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateUser stores a new user and returns its id.
	// Returns repository.ErrDuplicateEmail if the email is taken.
	CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
	// GetUserByEmail returns repository.ErrNotFound for unknown addresses.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// SetResetToken reports whether a user with email exists.
	SetResetToken(ctx context.Context, email, token string, expiry time.Time) (bool, error)
	// GetUserByResetToken returns repository.ErrNotFound unless the token is valid at now.
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	// ResetPassword atomically sets the password and clears the token.
	ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error)
}

// DefaultResetTokenTTL is how long a reset link stays usable.
const DefaultResetTokenTTL = time.Hour

// Service implements registration, login and password reset by delegating
// to an AuthRepository.
type Service struct {
	// repo performs the data-layer operations.
	repo     AuthRepository
	resetTTL time.Duration
	now      func() time.Time
}

// NewAuthService constructs a new Service using the provided repository.
// A non-positive resetTTL falls back to DefaultResetTokenTTL.
func NewAuthService(repo AuthRepository, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &Service{repo: repo, resetTTL: resetTTL, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(sanitize.Trim(email))
}

// ValidateEmail accepts a bare "local@domain" address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid("email", "Invalid email address.")
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return invalid("email", "Invalid email address.")
	}
	return nil
}

// ValidatePassword enforces the password length bounds. The upper bound is
// in bytes because bcrypt rejects longer input.
func ValidatePassword(password string) error {
	if len(password) < credentials.MinPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters long.", credentials.MinPasswordLength))
	}
	if len(password) > credentials.MaxPasswordBytes {
		return invalid("password", fmt.Sprintf("Password must be at most %d bytes long.", credentials.MaxPasswordBytes))
	}
	return nil
}

// Register creates an account and returns the new user id.
// It returns a *ValidationError for a malformed email or short password and
// ErrEmailTaken when the address is already registered.
func (s *Service) Register(ctx context.Context, email, password string) (int64, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return 0, err
	}
	if err := ValidatePassword(password); err != nil {
		return 0, err
	}

	hash, err := credentials.HashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	return id, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnHash spends the same bcrypt work as a real comparison so that unknown
// emails answer as slowly as wrong passwords.
func burnHash(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = credentials.HashPassword("studymate-dummy-password")
	})
	credentials.VerifyPassword(password, dummyHash)
}

// Authenticate returns the user matching email and password, or
// ErrInvalidCredentials without saying which of the two was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			burnHash(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !credentials.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RequestPasswordReset issues a fresh token for email. ok is false when no
// account uses that address; the token is then not stored anywhere.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (token string, ok bool, err error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return "", false, err
	}

	token, err = credentials.GenerateResetToken()
	if err != nil {
		return "", false, err
	}
	ok, err = s.repo.SetResetToken(ctx, email, token, s.now().Add(s.resetTTL))
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ValidateResetToken checks that token exists and has not expired.
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	if _, err := s.repo.GetUserByResetToken(ctx, token, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}

// ResetPassword sets a new password for the holder of token and invalidates
// the token. A second call with the same token returns ErrInvalidResetToken.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := credentials.HashPassword(password)
	if err != nil {
		return err
	}
	ok, err := s.repo.ResetPassword(ctx, token, hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}
