package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.Cache = (*Cache)(nil)

type Cache struct {
	mu   sync.Mutex
	snap *domain.OrderbookSnapshot
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) SetOrderbook(ctx context.Context, ob *domain.OrderbookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cpy := *ob
	c.snap = &cpy
	return nil
}

func (c *Cache) GetOrderbook(ctx context.Context) (*domain.OrderbookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return nil, nil
	}
	cpy := *c.snap
	return &cpy, nil
}
