// Package redis is the Redis store backend. Each store key maps to one
// Redis string under KeyPrefix, without expiry.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by the backend.
const KeyPrefix = "mindmark:"

// Backend stores values in Redis.
type Backend struct {
	client *redis.Client
}

// NewBackend wraps an already connected client.
func NewBackend(client *redis.Client) *Backend {
	return &Backend{
		client: client,
	}
}

// Key returns the Redis key for a store key.
func Key(key string) string {
	return KeyPrefix + key
}

// Get reads key; a redis.Nil reply means the key has never been written.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, true, nil
}

// Set overwrites key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	return b.client.Close()
}
