package core

import (
	"container/heap"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

// orderQueue is a priority queue of resting orders for one side; the order
// with the best price sorts first, ties go to the earliest arrival.
type orderQueue []*domain.Order

func (q orderQueue) Len() int           { return len(q) }
func (q orderQueue) Less(i, j int) bool { return q[i].Before(q[j]) }
func (q orderQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *orderQueue) Push(x any) { *q = append(*q, x.(*domain.Order)) }

func (q *orderQueue) Pop() any {
	old := *q
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return o
}

// Book is the limit order book: one priority queue per side plus the
// price level index. It exclusively owns all resting orders; callers must
// serialize access (the Exchange does).
type Book struct {
	bid   orderQueue
	ask   orderQueue
	index *PriceIndex
	seq   uint64
}

func NewBook() *Book {
	return &Book{index: NewPriceIndex()}
}

func (b *Book) queue(side domain.Side) *orderQueue {
	if side == domain.Buy {
		return &b.bid
	}
	return &b.ask
}

func (b *Book) best(side domain.Side) *domain.Order {
	q := *b.queue(side)
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// crosses reports whether the resting best on the opposite side trades
// against the incoming order: buy.price >= sell.price, both directions.
func crosses(incoming, best *domain.Order) bool {
	if incoming.Side == domain.Buy {
		return incoming.Price.GreaterThanOrEqual(best.Price)
	}
	return best.Price.GreaterThanOrEqual(incoming.Price)
}

// OpenOrder inserts the order and runs the matching loop against the
// opposite side. It returns the (possibly partially filled) order and one
// fill record per counter-order touched: a copy of that order's state at
// the moment of the trade with Qty set to the traded amount of that step.
// The trade price is always the resting order's price.
//
// A fully filled incoming order is removed again before returning; the
// caller must not assume it remains queryable.
func (b *Book) OpenOrder(o *domain.Order) (*domain.Order, []domain.Order) {
	b.seq++
	o.Seq = b.seq
	own := b.queue(o.Side)
	heap.Push(own, o)
	b.index.Adjust(o.Side, o.Price, o.Qty)

	opp := b.queue(o.Side.Opposite())
	var filled []domain.Order
	for o.Qty > 0 {
		best := b.best(o.Side.Opposite())
		if best == nil || !crosses(o, best) {
			break
		}

		qty := min(o.Qty, best.Qty)
		price := best.Price

		o.Qty -= qty
		o.PriceTraded = price
		best.Qty -= qty
		best.PriceTraded = price
		b.index.Adjust(o.Side, o.Price, -qty)
		b.index.Adjust(best.Side, best.Price, -qty)

		rec := *best
		rec.Qty = qty
		filled = append(filled, rec)

		if best.Qty == 0 {
			b.popFront(opp, best)
		}
		if o.Qty == 0 {
			b.popFront(own, o)
		}
	}

	b.assertUncrossed()
	return o, filled
}

// popFront removes the queue head, which must be the given order: the
// matching loop only ever exhausts the best entry of either side.
func (b *Book) popFront(q *orderQueue, want *domain.Order) {
	got := heap.Pop(q).(*domain.Order)
	if got != want {
		panic(fmt.Sprintf("book: filled order %d/%s not at queue front", want.ClientID, want.ID))
	}
}

// CancelOrder removes the resting order identified by (clientID, orderID).
// Client id is required because order ids are only unique per client.
func (b *Book) CancelOrder(clientID int64, orderID string) (*domain.Order, error) {
	for _, q := range []*orderQueue{&b.bid, &b.ask} {
		for i, o := range *q {
			if o.ClientID == clientID && o.ID == orderID {
				heap.Remove(q, i)
				b.index.Adjust(o.Side, o.Price, -o.Qty)
				b.assertUncrossed()
				return o, nil
			}
		}
	}
	return nil, domain.ErrOrderNotFound
}

// Find returns the resting order identified by (clientID, orderID), or
// false when no such order rests in the book.
func (b *Book) Find(clientID int64, orderID string) (*domain.Order, bool) {
	for _, q := range []*orderQueue{&b.bid, &b.ask} {
		for _, o := range *q {
			if o.ClientID == clientID && o.ID == orderID {
				return o, true
			}
		}
	}
	return nil, false
}

// GetPriceQty returns the aggregate resting quantity at (side, price).
func (b *Book) GetPriceQty(side domain.Side, price decimal.Decimal) int64 {
	return b.index.Get(side, price)
}

func (b *Book) RestingCount(side domain.Side) int {
	return b.queue(side).Len()
}

func (b *Book) BestBid() (*domain.Order, bool) {
	o := b.best(domain.Buy)
	return o, o != nil
}

func (b *Book) BestAsk() (*domain.Order, bool) {
	o := b.best(domain.Sell)
	return o, o != nil
}

// Snapshot copies all resting orders, each side sorted best-first.
func (b *Book) Snapshot() *domain.OrderbookSnapshot {
	snap := &domain.OrderbookSnapshot{
		Bids:      make([]domain.Order, 0, len(b.bid)),
		Asks:      make([]domain.Order, 0, len(b.ask)),
		Timestamp: time.Now(),
	}
	for _, o := range b.bid {
		snap.Bids = append(snap.Bids, *o)
	}
	for _, o := range b.ask {
		snap.Asks = append(snap.Asks, *o)
	}
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Before(&snap.Bids[j]) })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Before(&snap.Asks[j]) })
	return snap
}

// A best bid at or above the best ask after an operation completes means
// the matching loop missed a cross; continuing would produce economically
// wrong trades, so fail fast.
func (b *Book) assertUncrossed() {
	bb := b.best(domain.Buy)
	ba := b.best(domain.Sell)
	if bb != nil && ba != nil && bb.Price.GreaterThanOrEqual(ba.Price) {
		panic(fmt.Sprintf("book: crossed at rest, best bid %s >= best ask %s", bb.Price, ba.Price))
	}
}
