package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

// Stats are coarse activity counters. Traded grows by 2 per open_order call
// that filled anything: one credit for the taker, one for the maker side as
// a whole, however many counter-orders were touched.
type Stats struct {
	Opened      int64 `json:"opened"`
	Traded      int64 `json:"traded"`
	RestingBids int64 `json:"resting_bids"`
	RestingAsks int64 `json:"resting_asks"`
}

// Exchange owns one book and sequences order lifecycle events into the two
// report channels. All book access happens under the mutex; report emission
// happens in the derived order, fills strictly before datastream events.
type Exchange struct {
	mu           sync.Mutex
	book         *Book
	nextClientID int64
	stats        Stats

	fill       port.FillSink
	datastream port.DatastreamSink

	repo  port.Repository
	cache port.Cache
	log   *slog.Logger
}

func NewExchange(repo port.Repository, cache port.Cache, log *slog.Logger) *Exchange {
	if log == nil {
		log = slog.Default()
	}
	return &Exchange{
		book:  NewBook(),
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// SetReportSinks installs the two report channels. Either may be nil, in
// which case emission on that channel is skipped.
func (e *Exchange) SetReportSinks(fill port.FillSink, datastream port.DatastreamSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fill = fill
	e.datastream = datastream
}

// NextClientID returns a fresh client id; ids are never reused.
func (e *Exchange) NextClientID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextClientID
	e.nextClientID++
	return id
}

// OpenOrder builds an order, matches it and emits the resulting reports:
// fill reports first (taker, then each maker in match order), then the
// datastream sequence (trade, touched maker levels, the taker's own level
// if it still rests). Construction failures surface before the book is
// touched.
func (e *Exchange) OpenOrder(ctx context.Context, orderID string, clientID int64, side domain.Side, price decimal.Decimal, qty int64) error {
	order, err := domain.NewOrder(orderID, clientID, side, price, qty)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, filled := e.book.OpenOrder(order)
	e.stats.Opened++
	if len(filled) > 0 {
		e.stats.Traded += 2
	}

	var totalQty int64
	for _, f := range filled {
		totalQty += f.Qty
	}

	if e.fill != nil && len(filled) > 0 {
		e.emitFill(ctx, order.ClientID, order.ID, order.PriceTraded, totalQty)
		for _, f := range filled {
			e.emitFill(ctx, f.ClientID, f.ID, f.PriceTraded, f.Qty)
		}
	}

	if e.datastream != nil {
		if len(filled) > 0 {
			e.emitDatastream(ctx, domain.DatastreamReport{
				Type:  domain.ReportTrade,
				Time:  order.OpenedAt,
				Price: order.PriceTraded,
				Qty:   totalQty,
			})

			// One depth report per touched maker level, with the depth as it
			// stands after all fills of this call, not an intermediate value.
			seen := make(map[string]struct{}, len(filled))
			for _, f := range filled {
				key := levelKey(f.Price)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				e.emitDatastream(ctx, domain.DatastreamReport{
					Type:  domain.ReportOrderbook,
					Side:  f.Side,
					Time:  f.OpenedAt,
					Price: f.Price,
					Qty:   e.book.GetPriceQty(f.Side, f.Price),
				})
			}
		}
		if order.Qty > 0 {
			e.emitDatastream(ctx, domain.DatastreamReport{
				Type:  domain.ReportOrderbook,
				Side:  order.Side,
				Time:  order.OpenedAt,
				Price: order.Price,
				Qty:   e.book.GetPriceQty(order.Side, order.Price),
			})
		}
	}

	e.journalOpen(ctx, order, filled)
	e.refreshCache(ctx)
	return nil
}

// CancelOrder removes a resting order and reports the cancellation on the
// datastream channel. A lookup miss propagates domain.ErrOrderNotFound and
// emits nothing.
func (e *Exchange) CancelOrder(ctx context.Context, clientID int64, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := e.book.CancelOrder(clientID, orderID)
	if err != nil {
		return err
	}

	if e.datastream != nil {
		e.emitDatastream(ctx, domain.DatastreamReport{
			Type:  domain.ReportCancel,
			Side:  order.Side,
			Time:  order.OpenedAt,
			Price: order.Price,
			Qty:   order.Qty,
		})
	}

	if e.repo != nil {
		if err := e.repo.CancelOrder(ctx, clientID, orderID); err != nil {
			e.log.Warn("journal cancel failed", "client_id", clientID, "order_id", orderID, "err", err)
		}
	}
	e.refreshCache(ctx)
	return nil
}

// GetPriceQty returns the current aggregate resting depth at (side, price).
func (e *Exchange) GetPriceQty(side domain.Side, price decimal.Decimal) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.GetPriceQty(side, price)
}

func (e *Exchange) Snapshot() *domain.OrderbookSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot()
}

func (e *Exchange) SnapshotStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.RestingBids = int64(e.book.RestingCount(domain.Buy))
	s.RestingAsks = int64(e.book.RestingCount(domain.Sell))
	return s
}

// RestoreOpenOrders replays journaled open orders into a fresh book on
// startup. No reports are emitted and stats stay untouched; the journal is
// expected to return orders in their original submission order.
func (e *Exchange) RestoreOpenOrders(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	orders, err := e.repo.LoadOpenOrders(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range orders {
		e.book.OpenOrder(o)
	}
	if len(orders) > 0 {
		e.log.Info("restored open orders", "count", len(orders))
	}
	return nil
}

// A failing sink must not stop the remaining reports of the same call.
func (e *Exchange) emitFill(ctx context.Context, clientID int64, orderID string, price decimal.Decimal, qty int64) {
	if err := e.fill.FillOrderReport(ctx, clientID, orderID, price, qty); err != nil {
		e.log.Warn("fill report failed", "client_id", clientID, "order_id", orderID, "err", err)
	}
}

func (e *Exchange) emitDatastream(ctx context.Context, r domain.DatastreamReport) {
	if err := e.datastream.SendDatastreamReport(ctx, r); err != nil {
		e.log.Warn("datastream report failed", "type", r.Type, "err", err)
	}
}

func (e *Exchange) journalOpen(ctx context.Context, order *domain.Order, filled []domain.Order) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveOrder(ctx, order); err != nil {
		e.log.Warn("journal order failed", "order_id", order.ID, "err", err)
	}
	for _, f := range filled {
		t := &domain.Trade{
			ID:        uuid.NewString(),
			Price:     f.PriceTraded,
			Qty:       f.Qty,
			Timestamp: time.Now(),
		}
		if order.Side == domain.Buy {
			t.BuyClientID, t.BuyOrderID = order.ClientID, order.ID
			t.SellClientID, t.SellOrderID = f.ClientID, f.ID
		} else {
			t.BuyClientID, t.BuyOrderID = f.ClientID, f.ID
			t.SellClientID, t.SellOrderID = order.ClientID, order.ID
		}
		if err := e.repo.SaveTrade(ctx, t); err != nil {
			e.log.Warn("journal trade failed", "trade_id", t.ID, "err", err)
		}

		// Each maker is touched at most once per call, so its journal row can
		// be brought up to date here with whatever quantity still rests.
		maker := f
		maker.Qty = 0
		if resting, ok := e.book.Find(f.ClientID, f.ID); ok {
			maker.Qty = resting.Qty
		}
		if err := e.repo.SaveOrder(ctx, &maker); err != nil {
			e.log.Warn("journal maker update failed", "order_id", maker.ID, "err", err)
		}
	}
}

func (e *Exchange) refreshCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.SetOrderbook(ctx, e.book.Snapshot()); err != nil {
		e.log.Debug("orderbook cache update failed", "err", err)
	}
}
