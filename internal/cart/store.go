package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultStorageKey is the single key holding the serialised cart.
const DefaultStorageKey = "cart"

// Store is a durable key-value slot for the serialised cart. Load returns
// nil data and no error when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// MemoryStore keeps the cart in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns a store optionally pre-seeded with data.
func NewMemoryStore(seed []byte) *MemoryStore {
	return &MemoryStore{data: append([]byte(nil), seed...)}
}

// Load returns a copy of the stored bytes.
func (m *MemoryStore) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

// Save replaces the stored bytes.
func (m *MemoryStore) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// RedisStore keeps the cart under a single Redis key without expiry.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func (s RedisStore) key() string {
	if s.Key == "" {
		return DefaultStorageKey
	}
	return s.Key
}

// Load reads the cart key.
func (s RedisStore) Load(ctx context.Context) ([]byte, error) {
	if s.Client == nil {
		return nil, errors.New("cart: redis client not configured")
	}
	data, err := s.Client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Save writes the cart key.
func (s RedisStore) Save(ctx context.Context, data []byte) error {
	if s.Client == nil {
		return errors.New("cart: redis client not configured")
	}
	return s.Client.Set(ctx, s.key(), data, 0).Err()
}
