package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/passdepot/passdepot/internal/domain"
	"github.com/passdepot/passdepot/internal/repository"
)

func (r *Repository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	raw, err := r.store.Get(ctx, r.key(keyAccounts))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return []domain.Account{}, nil
		}
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return decodeList[domain.Account](raw)
}

func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	return r.store.Update(ctx, r.key(keyAccounts), func(current []byte) ([]byte, error) {
		list, err := decodeList[domain.Account](current)
		if err != nil {
			return nil, err
		}
		list = append(list, *account)
		return encodeList(list)
	})
}

func (r *Repository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	return r.store.Update(ctx, r.key(keyAccounts), func(current []byte) ([]byte, error) {
		list, err := decodeList[domain.Account](current)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if list[i].ID == account.ID {
				list[i] = *account
				return encodeList(list)
			}
		}
		return nil, repository.ErrNotFound
	})
}

func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	return r.store.Update(ctx, r.key(keyAccounts), func(current []byte) ([]byte, error) {
		list, err := decodeList[domain.Account](current)
		if err != nil {
			return nil, err
		}
		kept := list[:0]
		for _, account := range list {
			if account.ID != id {
				kept = append(kept, account)
			}
		}
		return encodeList(kept)
	})
}

func (r *Repository) DeleteAccountsByCategory(ctx context.Context, categoryID string) error {
	return r.store.Update(ctx, r.key(keyAccounts), func(current []byte) ([]byte, error) {
		list, err := decodeList[domain.Account](current)
		if err != nil {
			return nil, err
		}
		kept := list[:0]
		for _, account := range list {
			if account.CategoryID != categoryID {
				kept = append(kept, account)
			}
		}
		return encodeList(kept)
	})
}
