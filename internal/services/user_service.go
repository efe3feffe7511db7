// Package services – UserService
//
// Member registration and profile lookup. Authentication and session policy
// live outside this service; the password is hashed here so credentials are
// never stored in the clear, and the hash never leaves the domain type's
// JSON-excluded field.
package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelf/go-library-backend/internal/domain"
	"github.com/openshelf/go-library-backend/internal/relay"
	"github.com/openshelf/go-library-backend/internal/repo"
)

// UserService implements member registration and profile access.
type UserService struct {
	DB    *gorm.DB
	Relay relay.Relay
}

// RegisterInput carries the caller-supplied registration fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Address  string
	Phone    string
}

// Register creates a member with a bcrypt-hashed password and mirrors the
// row into the analytics store best-effort.
//
// Errors: ErrDuplicateUsername, or the underlying DB/hash error.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Address:      in.Address,
		Phone:        strings.TrimSpace(in.Phone),
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	_ = s.Relay.SyncUser(ctx, u)
	return u, nil
}

// Get returns a member by ID.
func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
