package category

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository"
)

// ErrMissingID is returned when a delete request carries no category id.
var ErrMissingID = errors.New("category ID required")

// Service handles category CRUD and the delete cascade into accounts.
type Service struct {
	categories repository.CategoryRepository
	accounts   repository.AccountRepository
	logger     *slog.Logger
}

// New constructs a Service.
func New(categories repository.CategoryRepository, accounts repository.AccountRepository, logger *slog.Logger) Service {
	return Service{categories: categories, accounts: accounts, logger: logger}
}

// List returns the entire collection.
func (s Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListCategories(ctx)
}

// Create assigns server-side id and creation timestamp and appends the record.
func (s Service) Create(ctx context.Context, input domain.Category) (*domain.Category, error) {
	input.ID = domain.NewID()
	input.CreatedAt = domain.Now()
	if err := s.categories.CreateCategory(ctx, &input); err != nil {
		return nil, err
	}
	s.logger.Info("category created", "category_id", input.ID)
	return &input, nil
}

// Delete removes the category, then every account referencing it. The two
// writes hit separate keys and are not atomic with each other: a crash in
// between leaves accounts with a dangling categoryId, which readers tolerate.
func (s Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.DeleteAccountsByCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("category deleted", "category_id", id)
	return nil
}
