package tcp

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/olyamironova/exchange-simulator/internal/domain"
)

// client is one connected peer. Reports are written from the exchange
// dispatch goroutine while the read loop runs elsewhere, so writes are
// serialized per connection.
type client struct {
	conn net.Conn
	mu   sync.Mutex
}

func (c *client) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.conn.Write(b)
	return err
}

// The public channel names sides bid/ask rather than BUY/SELL.
func wireSide(s domain.Side) string {
	switch s {
	case domain.Buy:
		return "bid"
	case domain.Sell:
		return "ask"
	default:
		return ""
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
