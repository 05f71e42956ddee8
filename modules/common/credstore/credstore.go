package credstore

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// storageKey is the single slot the credential lives under.
const storageKey = "credential:gemini_api_key"

// KV is the small persistence surface the store needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// Store keeps the user-supplied API key in a KV backend with an in-process
// cache, so repeated reads during a polling loop do not hit the backend.
type Store struct {
	kv KV

	mu     sync.RWMutex
	cached string
	loaded bool
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Seed stores a key only when the slot is still empty. Used to bootstrap
// from the environment without clobbering a key the user already saved.
func (s *Store) Seed(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	existing, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	log.Printf("🔑 [CredStore] Seeding API key from environment")
	return s.Set(ctx, key)
}

// Get returns the stored key, or "" when none is set.
func (s *Store) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()

	value, err := s.kv.Get(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	s.mu.Lock()
	s.cached = value
	s.loaded = true
	s.mu.Unlock()
	return value, nil
}

// Set persists the key and refreshes the cache.
func (s *Store) Set(ctx context.Context, key string) error {
	if err := s.kv.Set(ctx, storageKey, key); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	s.mu.Lock()
	s.cached = key
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Clear removes the key from the backend and the cache.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Del(ctx, storageKey); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	s.mu.Lock()
	s.cached = ""
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// RedisKV adapts a redis client to the KV interface. A missing key reads
// as "", not as an error.
type RedisKV struct {
	Client *redis.Client
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.Client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}
