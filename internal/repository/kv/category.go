package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/passdepot/passdepot/internal/domain"
)

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	raw, err := r.store.Get(ctx, r.key(keyCategories))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return []domain.Category{}, nil
		}
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return decodeList[domain.Category](raw)
}

func (r *Repository) CreateCategory(ctx context.Context, category *domain.Category) error {
	return r.store.Update(ctx, r.key(keyCategories), func(current []byte) ([]byte, error) {
		list, err := decodeList[domain.Category](current)
		if err != nil {
			return nil, err
		}
		list = append(list, *category)
		return encodeList(list)
	})
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.store.Update(ctx, r.key(keyCategories), func(current []byte) ([]byte, error) {
		list, err := decodeList[domain.Category](current)
		if err != nil {
			return nil, err
		}
		kept := list[:0]
		for _, category := range list {
			if category.ID != id {
				kept = append(kept, category)
			}
		}
		return encodeList(kept)
	})
}
