package account

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository"
)

// ErrMissingID is returned when a delete request carries no account id.
var ErrMissingID = errors.New("account ID required")

// Service handles account CRUD over the stored collection.
type Service struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(accounts repository.AccountRepository, logger *slog.Logger) Service {
	return Service{accounts: accounts, logger: logger}
}

// List returns the entire collection. No filtering, no pagination.
func (s Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

// Create assigns server-side id and creation timestamp, appends the record
// and returns it as stored. Field content is not validated; presence checks
// belong to the caller.
func (s Service) Create(ctx context.Context, input domain.Account) (*domain.Account, error) {
	input.ID = domain.NewID()
	input.CreatedAt = domain.Now()
	input.UpdatedAt = ""
	if err := s.accounts.CreateAccount(ctx, &input); err != nil {
		return nil, err
	}
	s.logger.Info("account created", "account_id", input.ID, "category_id", input.CategoryID)
	return &input, nil
}

// Update replaces the stored record with the given one. Full-record
// replacement: fields omitted by the caller are dropped, not merged.
func (s Service) Update(ctx context.Context, input domain.Account) (*domain.Account, error) {
	input.UpdatedAt = domain.Now()
	if err := s.accounts.UpdateAccount(ctx, &input); err != nil {
		return nil, err
	}
	s.logger.Info("account updated", "account_id", input.ID)
	return &input, nil
}

// Delete removes the record with the given id. Removing an absent id
// succeeds; only a missing id parameter is an error.
func (s Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted", "account_id", id)
	return nil
}
