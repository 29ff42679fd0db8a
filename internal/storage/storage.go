// Package storage provides the key/value backends the session store persists to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Storage is a minimal string key/value store. GetItem reports found=false for
// a missing key instead of an error.
type Storage interface {
	GetItem(ctx context.Context, key string) (value string, found bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Path      string
	RedisAddr string
	LogLevel  string
}

// Open builds the backend named by opts.Backend: "memory", "sqlite" or "redis".
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch strings.ToLower(opts.Backend) {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		return OpenGormStorage(opts.Path, opts.LogLevel)
	case "redis":
		return OpenRedisStorage(ctx, opts.RedisAddr)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// MemoryStorage keeps items in a map. It is the test backend and the
// fallback when no device store is available.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (s *MemoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStorage) Close() error { return nil }
