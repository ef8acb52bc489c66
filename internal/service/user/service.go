package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository"
	"github.com/passdepot/passdepot/pkg/crypto"
	"github.com/passdepot/passdepot/pkg/token"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var (
	// ErrMissingFields is returned when username or password is absent.
	ErrMissingFields = errors.New("username and password are required")
	// ErrUsernameTooShort is returned by Setup for usernames under 3 characters.
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	// ErrPasswordTooShort rejects passwords under 6 characters.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrAlreadySet is returned by Setup once a credential exists.
	ErrAlreadySet = errors.New("user already exists")
	// ErrNoUser is returned while no credential has been provisioned.
	ErrNoUser = errors.New("no user found")
	// ErrInvalidCredentials is returned on username or password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCurrentPassword is returned when a password change presents the
	// wrong current password.
	ErrCurrentPassword = errors.New("current password is incorrect")
)

// Service manages the single admin credential: setup, login, password change.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	secret string
	ttl    time.Duration
}

// New constructs a Service. secret signs session tokens issued by Login.
func New(users repository.UserRepository, logger *slog.Logger, secret string, ttl time.Duration) Service {
	return Service{users: users, logger: logger, secret: secret, ttl: ttl}
}

// IsSet reports whether the admin credential has been provisioned.
func (s Service) IsSet(ctx context.Context) (bool, error) {
	_, err := s.users.GetUser(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Setup provisions the credential. Valid only while unset; a second call
// fails with ErrAlreadySet regardless of the credentials offered.
func (s Service) Setup(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrMissingFields
	}
	if len(username) < minUsernameLen {
		return ErrUsernameTooShort
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	user := domain.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		CreatedAt:    domain.Now(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAlreadySet
		}
		return err
	}
	s.logger.Info("admin credential provisioned", "username", user.Username)
	return nil
}

// Login verifies the credential and returns the stored username plus a
// signed session token. Legacy reversible records are upgraded to bcrypt on
// first successful verification.
func (s Service) Login(ctx context.Context, username, password string) (string, string, error) {
	if username == "" || password == "" {
		return "", "", ErrMissingFields
	}
	stored, err := s.users.GetUser(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrNoUser
		}
		return "", "", err
	}
	if stored.Username != strings.TrimSpace(username) {
		return "", "", ErrInvalidCredentials
	}
	if !s.verify(stored.PasswordHash, password) {
		return "", "", ErrInvalidCredentials
	}
	if crypto.IsLegacyHash(stored.PasswordHash) {
		s.upgradeLegacy(ctx, stored, password)
	}
	signed, err := token.Issue(stored.Username, s.secret, s.ttl)
	if err != nil {
		return "", "", err
	}
	s.logger.Info("admin logged in", "username", stored.Username)
	return stored.Username, signed, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s Service) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrMissingFields
	}
	if len(newPassword) < minPasswordLen {
		return ErrPasswordTooShort
	}
	stored, err := s.users.GetUser(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoUser
		}
		return err
	}
	if !s.verify(stored.PasswordHash, currentPassword) {
		return ErrCurrentPassword
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return err
	}
	stored.PasswordHash = hash
	stored.UpdatedAt = domain.Now()
	if err := s.users.SaveUser(ctx, stored); err != nil {
		return err
	}
	s.logger.Info("admin password changed", "username", stored.Username)
	return nil
}

// Info returns the stored credential record for display. The password hash
// stays server-side; callers expose username and timestamps only.
func (s Service) Info(ctx context.Context) (*domain.User, error) {
	stored, err := s.users.GetUser(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoUser
		}
		return nil, err
	}
	return stored, nil
}

func (s Service) verify(hash, plain string) bool {
	if crypto.IsLegacyHash(hash) {
		return crypto.VerifyLegacy(hash, plain)
	}
	return crypto.ComparePassword(hash, plain) == nil
}

// upgradeLegacy rewrites a verified reversible record as bcrypt. Failure is
// logged and swallowed: the login itself already succeeded.
func (s Service) upgradeLegacy(ctx context.Context, stored *domain.User, password string) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.logger.Warn("legacy credential upgrade failed", "error", err)
		return
	}
	stored.PasswordHash = hash
	if err := s.users.SaveUser(ctx, stored); err != nil {
		s.logger.Warn("legacy credential upgrade failed", "error", err)
		return
	}
	s.logger.Info("legacy credential upgraded to bcrypt", "username", stored.Username)
}
