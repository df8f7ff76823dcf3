package in_memory

import (
	"context"
	"sort"
	"sync"

	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

type orderKey struct {
	ClientID int64
	OrderID  string
}

// MemoryRepo is an in-process journal used by tests and no-infra runs.
type MemoryRepo struct {
	mu       sync.Mutex
	orders   map[orderKey]*domain.Order
	canceled map[orderKey]struct{}
	trades   []*domain.Trade
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders:   make(map[orderKey]*domain.Order),
		canceled: make(map[orderKey]struct{}),
	}
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *o
	r.orders[orderKey{o.ClientID, o.ID}] = &cpy
	return nil
}

func (r *MemoryRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *t
	r.trades = append(r.trades, &cpy)
	return nil
}

func (r *MemoryRepo) CancelOrder(ctx context.Context, clientID int64, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := orderKey{clientID, orderID}
	if _, ok := r.orders[key]; !ok {
		return domain.ErrOrderNotFound
	}
	r.canceled[key] = struct{}{}
	return nil
}

// LoadOpenOrders returns uncanceled orders with remaining quantity in their
// original submission order.
func (r *MemoryRepo) LoadOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for key, o := range r.orders {
		if _, gone := r.canceled[key]; gone || o.Qty <= 0 {
			continue
		}
		cpy := *o
		res = append(res, &cpy)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Seq < res[j].Seq })
	return res, nil
}

func (r *MemoryRepo) Trades() []*domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Trade(nil), r.trades...)
}

func (r *MemoryRepo) Close(ctx context.Context) {}
