package port

import (
	"context"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

// Repository journals orders and trades for observability and warm starts.
// The book stays authoritative; writes are best-effort from the exchange's
// point of view.
type Repository interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	CancelOrder(ctx context.Context, clientID int64, orderID string) error
	LoadOpenOrders(ctx context.Context) ([]*domain.Order, error)
	Close(ctx context.Context)
}
