package port

import (
	"context"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

// Cache holds the latest order book snapshot for cheap external reads.
type Cache interface {
	SetOrderbook(ctx context.Context, ob *domain.OrderbookSnapshot) error
	GetOrderbook(ctx context.Context) (*domain.OrderbookSnapshot, error)
}
