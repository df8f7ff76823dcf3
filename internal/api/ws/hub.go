package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/olyamironova/exchange-simulator/internal/api/dto"
	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.DatastreamSink = (*Hub)(nil)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The datastream is anonymous market data; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub mirrors the public datastream channel over websocket, for browser
// clients that cannot speak the raw TCP protocol.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Serve upgrades the request and subscribes the connection until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go h.drain(conn)
}

func (h *Hub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// SendDatastreamReport broadcasts the report to every subscriber. Failed
// subscribers are dropped; the error never propagates to the exchange.
func (h *Hub) SendDatastreamReport(ctx context.Context, r domain.DatastreamReport) error {
	msg := dto.DatastreamMessage{
		Type:     string(r.Type),
		Price:    r.Price.String(),
		Quantity: r.Qty,
		Time:     float64(r.Time.UnixMicro()) / 1e6,
	}
	if r.Type != domain.ReportTrade {
		switch r.Side {
		case domain.Buy:
			msg.Side = "bid"
		case domain.Sell:
			msg.Side = "ask"
		}
	}

	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Warn("websocket write failed, dropping subscriber", "err", err)
			h.remove(conn)
		}
	}
	return nil
}

// SubscriberCount reports connected websocket subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
