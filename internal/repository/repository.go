package repository

import (
	"context"

	"github.com/passdepot/passdepot/internal/domain"
)

// AccountRepository persists the account collection.
type AccountRepository interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	// UpdateAccount replaces the stored record with the same ID wholesale.
	// Returns ErrNotFound when no record carries that ID.
	UpdateAccount(ctx context.Context, account *domain.Account) error
	// DeleteAccount is idempotent: removing an absent ID is a no-op.
	DeleteAccount(ctx context.Context, id string) error
	DeleteAccountsByCategory(ctx context.Context, categoryID string) error
}

// CategoryRepository persists the category collection.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	// DeleteCategory is idempotent like DeleteAccount.
	DeleteCategory(ctx context.Context, id string) error
}

// UserRepository persists the singleton admin credential.
type UserRepository interface {
	// GetUser returns ErrNotFound while no credential has been provisioned.
	GetUser(ctx context.Context) (*domain.User, error)
	// CreateUser returns ErrConflict when a credential already exists.
	CreateUser(ctx context.Context, user *domain.User) error
	SaveUser(ctx context.Context, user *domain.User) error
}
