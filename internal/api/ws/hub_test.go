package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/api/dto"
	"github.com/olyamironova/exchange-simulator/internal/domain"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The handshake can complete before Serve registers the connection.
	deadline := time.Now().Add(2 * time.Second)
	for h.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubBroadcastsReports(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	conn := dialHub(t, h)

	report := domain.DatastreamReport{
		Type:  domain.ReportOrderbook,
		Side:  domain.Buy,
		Time:  time.Now(),
		Price: decimal.RequireFromString("10.5"),
		Qty:   30,
	}
	if err := h.SendDatastreamReport(context.Background(), report); err != nil {
		t.Fatalf("send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg dto.DatastreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "orderbook" || msg.Side != "bid" || msg.Price != "10.5" || msg.Quantity != 30 {
		t.Fatalf("msg = %+v, want orderbook bid 30@10.5", msg)
	}
}

func TestHubOmitsSideOnTrades(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	conn := dialHub(t, h)

	report := domain.DatastreamReport{
		Type:  domain.ReportTrade,
		Side:  domain.Buy, // must not leak into the message
		Time:  time.Now(),
		Price: decimal.RequireFromString("99"),
		Qty:   1,
	}
	if err := h.SendDatastreamReport(context.Background(), report); err != nil {
		t.Fatalf("send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg dto.DatastreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "trade" || msg.Side != "" {
		t.Fatalf("msg = %+v, want side-less trade", msg)
	}
}

func TestHubDropsClosedSubscribers(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()
	conn := dialHub(t, h)
	conn.Close()

	// Broadcasting to the dead connection must not error; the subscriber is
	// evicted either by the drain loop or by the failed write.
	report := domain.DatastreamReport{
		Type:  domain.ReportCancel,
		Side:  domain.Sell,
		Time:  time.Now(),
		Price: decimal.RequireFromString("1"),
		Qty:   1,
	}
	for i := 0; i < 3; i++ {
		if err := h.SendDatastreamReport(context.Background(), report); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
}
