package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a journal record of one matching step, kept for observability.
// Order references use the per-client order id of each party.
type Trade struct {
	ID           string
	BuyClientID  int64
	BuyOrderID   string
	SellClientID int64
	SellOrderID  string
	Price        decimal.Decimal
	Qty          int64
	Timestamp    time.Time
}
