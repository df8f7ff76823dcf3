package core

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

// PriceIndex keeps the aggregate resting quantity per (side, price) level.
// It is maintained incrementally by the book, exactly once per quantity
// change, and never recomputed from scratch. Levels whose aggregate reaches
// zero are deleted so Get answers 0 for untouched prices without an
// existence check.
type PriceIndex struct {
	bid map[string]int64
	ask map[string]int64
}

func NewPriceIndex() *PriceIndex {
	return &PriceIndex{
		bid: make(map[string]int64),
		ask: make(map[string]int64),
	}
}

// levelKey relies on decimal.String() trimming trailing zeros, so equal
// prices always map to the same level regardless of input representation.
func levelKey(price decimal.Decimal) string {
	return price.String()
}

func (x *PriceIndex) table(side domain.Side) map[string]int64 {
	if side == domain.Buy {
		return x.bid
	}
	return x.ask
}

// Get returns the aggregate resting quantity at the level, or 0 if absent.
func (x *PriceIndex) Get(side domain.Side, price decimal.Decimal) int64 {
	return x.table(side)[levelKey(price)]
}

// Adjust adds delta (possibly negative) to the level's aggregate. A negative
// result means the matching algorithm corrupted the book; that is fatal.
func (x *PriceIndex) Adjust(side domain.Side, price decimal.Decimal, delta int64) {
	table := x.table(side)
	key := levelKey(price)
	next := table[key] + delta
	switch {
	case next < 0:
		panic(fmt.Sprintf("price index: negative aggregate %d at %s %s", next, side, key))
	case next == 0:
		delete(table, key)
	default:
		table[key] = next
	}
}

// Levels reports the number of distinct non-empty price levels on a side.
func (x *PriceIndex) Levels(side domain.Side) int {
	return len(x.table(side))
}
