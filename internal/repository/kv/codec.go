package kv

import (
	"encoding/json"
	"fmt"
)

// decodeList parses a stored JSON array. A nil or empty value decodes to an
// empty slice: an absent collection is a valid state, not an error.
// Malformed stored JSON is surfaced, never repaired.
func decodeList[T any](raw []byte) ([]T, error) {
	if len(raw) == 0 {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode stored list: %w", err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// encodeList serializes a collection for whole-value replacement of its key.
func encodeList[T any](list []T) ([]byte, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return raw, nil
}

func decodeSingleton[T any](raw []byte) (*T, error) {
	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode stored record: %w", err)
	}
	return &record, nil
}

func encodeSingleton[T any](record *T) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return raw, nil
}
