package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Order is a resting limit order. Identity is the pair (ClientID, ID):
// order ids are unique per client only, not globally. Qty is mutated down
// by the matching loop and reaches exactly zero on a full fill; PriceTraded
// is set only at the moment a fill happens.
type Order struct {
	ID          string
	ClientID    int64
	Side        Side
	Price       decimal.Decimal
	Qty         int64
	PriceTraded decimal.Decimal
	OpenedAt    time.Time

	// Seq is assigned by the book on insertion and breaks price ties in
	// submission order. Wall-clock timestamps can collide; Seq cannot.
	Seq uint64
}

// NewOrder validates wire input before it can reach the book.
func NewOrder(id string, clientID int64, side Side, price decimal.Decimal, qty int64) (*Order, error) {
	if !side.Valid() {
		return nil, ErrInvalidSide
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		ID:       id,
		ClientID: clientID,
		Side:     side,
		Price:    price,
		Qty:      qty,
		OpenedAt: time.Now(),
	}, nil
}

// Before reports whether o has priority over other within the same side:
// better price first (highest for BUY, lowest for SELL), then earliest
// arrival among equal prices.
func (o *Order) Before(other *Order) bool {
	if !o.Price.Equal(other.Price) {
		if o.Side == Buy {
			return o.Price.GreaterThan(other.Price)
		}
		return o.Price.LessThan(other.Price)
	}
	return o.Seq < other.Seq
}
