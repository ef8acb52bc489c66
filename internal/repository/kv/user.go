package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository"
)

func (r *Repository) GetUser(ctx context.Context) (*domain.User, error) {
	raw, err := r.store.Get(ctx, r.key(keyUser))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return decodeSingleton[domain.User](raw)
}

// CreateUser provisions the singleton credential. The existence check runs
// inside the CAS loop, so two concurrent setups cannot both succeed.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	return r.store.Update(ctx, r.key(keyUser), func(current []byte) ([]byte, error) {
		if len(current) > 0 {
			return nil, repository.ErrConflict
		}
		return encodeSingleton(user)
	})
}

func (r *Repository) SaveUser(ctx context.Context, user *domain.User) error {
	raw, err := encodeSingleton(user)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.key(keyUser), raw)
}
