package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pasteleia/bakery/internal/domain/cart"
)

// DefaultCartTTL is how long an untouched cart is kept.
const DefaultCartTTL = 30 * 24 * time.Hour

var _ cart.Storage = (*CartStorage)(nil)

// CartStorage implements cart.Storage. Every save refreshes the TTL.
type CartStorage struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewCartStorage returns a CartStorage. A non-positive ttl selects
// DefaultCartTTL.
func NewCartStorage(client goredis.UniversalClient, ttl time.Duration) *CartStorage {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStorage{client: client, ttl: ttl}
}

// Load implements cart.Storage.
func (s *CartStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, cartKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, cart.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Save implements cart.Storage.
func (s *CartStorage) Save(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, cartKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func cartKey(key string) string {
	return "cart:" + key
}
