package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

// FillSink receives private execution reports, one call per filled party.
// Qty is the traded amount, not the remaining one.
type FillSink interface {
	FillOrderReport(ctx context.Context, clientID int64, orderID string, price decimal.Decimal, qty int64) error
}

// DatastreamSink receives anonymous public reports about trades and book
// changes. Implementations must tolerate being called from the exchange
// dispatch goroutine; report order is fixed by the producer.
type DatastreamSink interface {
	SendDatastreamReport(ctx context.Context, r domain.DatastreamReport) error
}
