// Package memory is an in-process store backend. Nothing survives a restart.
package memory

import (
	"context"
	"sync"
)

// Backend keeps values in a map guarded by a RWMutex.
type Backend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty memory backend.
func New() *Backend {
	return &Backend{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set replaces the value under key.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = append([]byte(nil), value...)
	return nil
}

func (b *Backend) Ping(context.Context) error { return nil }

func (b *Backend) Close() error { return nil }

// Len returns the number of keys held.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.values)
}
