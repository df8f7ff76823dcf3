package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.Cache = (*RedisCache)(nil)

const orderbookKey = "ob:book"

// RedisCache keeps the latest order book snapshot so external readers do
// not have to go through the exchange mutex.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

func (c *RedisCache) SetOrderbook(ctx context.Context, ob *domain.OrderbookSnapshot) error {
	b, err := json.Marshal(ob)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, orderbookKey, b, c.ttl).Err()
}

func (c *RedisCache) GetOrderbook(ctx context.Context) (*domain.OrderbookSnapshot, error) {
	b, err := c.client.Get(ctx, orderbookKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ob domain.OrderbookSnapshot
	if err := json.Unmarshal(b, &ob); err != nil {
		return nil, err
	}
	return &ob, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
