package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache stores encoded values by key. Backends never return an error from
// Get; a miss and a backend failure look the same to callers.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// GetJSON decodes the cached value for key into dst.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	data, ok := c.Get(ctx, key)
	if !ok || len(data) == 0 {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
