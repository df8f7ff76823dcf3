package core

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

func TestPriceIndexGetAbsent(t *testing.T) {
	x := NewPriceIndex()
	if got := x.Get(domain.Buy, decimal.NewFromInt(100)); got != 0 {
		t.Fatalf("untouched level reported %d, want 0", got)
	}
}

func TestPriceIndexAdjust(t *testing.T) {
	x := NewPriceIndex()
	price := decimal.NewFromInt(150)

	x.Adjust(domain.Buy, price, 200)
	x.Adjust(domain.Buy, price, 50)
	if got := x.Get(domain.Buy, price); got != 250 {
		t.Fatalf("aggregate = %d, want 250", got)
	}

	// Sides are independent levels.
	if got := x.Get(domain.Sell, price); got != 0 {
		t.Fatalf("sell aggregate = %d, want 0", got)
	}

	x.Adjust(domain.Buy, price, -250)
	if got := x.Get(domain.Buy, price); got != 0 {
		t.Fatalf("aggregate after drain = %d, want 0", got)
	}
	if x.Levels(domain.Buy) != 0 {
		t.Fatal("zero level must be deleted, not stored")
	}
}

func TestPriceIndexEqualPricesShareLevel(t *testing.T) {
	x := NewPriceIndex()
	a, _ := decimal.NewFromString("1.50")
	b, _ := decimal.NewFromString("1.5")

	x.Adjust(domain.Sell, a, 10)
	x.Adjust(domain.Sell, b, 5)
	if got := x.Get(domain.Sell, a); got != 15 {
		t.Fatalf("equal decimals mapped to separate levels, got %d", got)
	}
	if x.Levels(domain.Sell) != 1 {
		t.Fatalf("levels = %d, want 1", x.Levels(domain.Sell))
	}
}

func TestPriceIndexNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("negative aggregate must panic")
		}
	}()
	x := NewPriceIndex()
	x.Adjust(domain.Buy, decimal.NewFromInt(10), 5)
	x.Adjust(domain.Buy, decimal.NewFromInt(10), -6)
}
