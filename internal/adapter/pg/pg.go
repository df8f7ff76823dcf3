package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

// PgRepo journals orders and trades to Postgres. The exchange's book stays
// authoritative; this exists for observability and warm starts.
type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finished working with the database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close(ctx context.Context) {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the journal tables when they do not exist yet.
func (p *PgRepo) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders(
  client_id BIGINT NOT NULL,
  order_id  TEXT NOT NULL,
  side      TEXT NOT NULL,
  price     NUMERIC NOT NULL,
  qty       BIGINT NOT NULL,
  status    TEXT NOT NULL DEFAULT 'OPEN',
  opened_at TIMESTAMPTZ NOT NULL,
  seq       BIGINT NOT NULL,
  PRIMARY KEY (client_id, order_id)
);
CREATE TABLE IF NOT EXISTS trades(
  id             TEXT PRIMARY KEY,
  buy_client_id  BIGINT NOT NULL,
  buy_order_id   TEXT NOT NULL,
  sell_client_id BIGINT NOT NULL,
  sell_order_id  TEXT NOT NULL,
  price          NUMERIC NOT NULL,
  qty            BIGINT NOT NULL,
  executed_at    TIMESTAMPTZ NOT NULL
);
`)
	return err
}

func (p *PgRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO orders(client_id, order_id, side, price, qty, status, opened_at, seq)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (client_id, order_id) DO UPDATE SET
  qty = EXCLUDED.qty,
  status = EXCLUDED.status
`, o.ClientID, o.ID, string(o.Side), o.Price, o.Qty, status(o), o.OpenedAt, int64(o.Seq))
	return err
}

func status(o *domain.Order) string {
	if o.Qty == 0 {
		return "FILLED"
	}
	return "OPEN"
}

func (p *PgRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO trades(id, buy_client_id, buy_order_id, sell_client_id, sell_order_id, price, qty, executed_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.BuyClientID, t.BuyOrderID, t.SellClientID, t.SellOrderID, t.Price, t.Qty, t.Timestamp)
	return err
}

// CancelOrder marks an order as cancelled if it is still open.
func (p *PgRepo) CancelOrder(ctx context.Context, clientID int64, orderID string) error {
	res, err := p.pool.Exec(ctx, `
UPDATE orders
SET qty = 0, status = 'CANCELLED'
WHERE client_id = $1 AND order_id = $2 AND status = 'OPEN'
`, clientID, orderID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// LoadOpenOrders returns open orders in original submission order (FIFO),
// so replaying them reproduces the book's price-time priority.
func (p *PgRepo) LoadOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := p.pool.Query(ctx, `
SELECT client_id, order_id, side, price, qty, opened_at, seq
FROM orders
WHERE qty > 0 AND status = 'OPEN'
ORDER BY seq ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var o domain.Order
		var side string
		var seq int64
		if err := rows.Scan(&o.ClientID, &o.ID, &side, &o.Price, &o.Qty, &o.OpenedAt, &seq); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Seq = uint64(seq)
		res = append(res, &o)
	}
	return res, rows.Err()
}
