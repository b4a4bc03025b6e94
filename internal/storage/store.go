package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Fixed slot keys. Values are JSON documents.
const (
	SlotCart    = "cart"
	SlotSession = "session"
	SlotProfile = "profileData"
)

var ErrSlotEmpty = errors.New("slot is empty")

// Slots is durable key-value storage that survives restarts.
type Slots interface {
	// Get returns the raw value stored under key, or ErrSlotEmpty when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection
	Close() error
}

// GetJSON loads key and decodes it into v.
func GetJSON(ctx context.Context, s Slots, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal slot %s failed: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Slots, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal slot %s failed: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
