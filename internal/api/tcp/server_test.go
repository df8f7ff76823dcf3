package tcp

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/api/dto"
	"github.com/olyamironova/exchange-simulator/internal/core"
)

const readTimeout = 2 * time.Second

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

type testClient struct {
	conn net.Conn
	dec  *json.Decoder
}

func dialTest(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, dec: json.NewDecoder(conn)}
}

func (c *testClient) send(t *testing.T, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := c.conn.Write(append(b, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMessage[T any](t *testing.T, c *testClient) T {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	var msg T
	if err := c.dec.Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func startServers(t *testing.T) (*OrderServer, *DatastreamServer) {
	t.Helper()
	exchange := core.NewExchange(nil, nil, nil)
	orderServer := NewOrderServer(exchange, nil)
	datastreamServer := NewDatastreamServer(nil)
	exchange.SetReportSinks(orderServer, datastreamServer)

	if err := orderServer.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("start order server: %v", err)
	}
	t.Cleanup(orderServer.Stop)
	if err := datastreamServer.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("start datastream server: %v", err)
	}
	t.Cleanup(datastreamServer.Stop)
	return orderServer, datastreamServer
}

func TestOrderFlowOverTCP(t *testing.T) {
	orderServer, datastreamServer := startServers(t)

	feed := dialTest(t, datastreamServer.Addr())
	waitForSubscribers(t, datastreamServer, 1)

	// First connection becomes client 0; prove registration by completing
	// a request before the second client dials.
	alice := dialTest(t, orderServer.Addr())
	alice.send(t, dto.ClientRequest{Message: "createOrder", OrderID: "223", Side: "BUY", Price: dec(t, "150"), Quantity: 200})
	if rep := readMessage[dto.ExecutionReport](t, alice); rep.Report != dto.ReportNew {
		t.Fatalf("report = %q, want NEW", rep.Report)
	}
	if msg := readMessage[dto.DatastreamMessage](t, feed); msg.Type != "orderbook" || msg.Side != "bid" || msg.Quantity != 200 {
		t.Fatalf("feed msg = %+v, want orderbook bid/200", msg)
	}

	bob := dialTest(t, orderServer.Addr())
	bob.send(t, dto.ClientRequest{Message: "createOrder", OrderID: "334", Side: "SELL", Price: dec(t, "149"), Quantity: 100})

	if rep := readMessage[dto.ExecutionReport](t, bob); rep.Report != dto.ReportNew {
		t.Fatalf("report = %q, want NEW", rep.Report)
	}
	// Taker fill goes to bob, maker fill to alice, both at the maker price.
	bobFill := readMessage[dto.ExecutionReport](t, bob)
	if bobFill.Report != dto.ReportFill || bobFill.Price != "150" || bobFill.Quantity != 100 {
		t.Fatalf("taker fill = %+v, want FILL 100@150", bobFill)
	}
	aliceFill := readMessage[dto.ExecutionReport](t, alice)
	if aliceFill.Report != dto.ReportFill || aliceFill.OrderID != "223" || aliceFill.Quantity != 100 {
		t.Fatalf("maker fill = %+v, want FILL of order 223", aliceFill)
	}

	trade := readMessage[dto.DatastreamMessage](t, feed)
	if trade.Type != "trade" || trade.Side != "" || trade.Price != "150" || trade.Quantity != 100 {
		t.Fatalf("trade msg = %+v, want side-less trade 100@150", trade)
	}
	depth := readMessage[dto.DatastreamMessage](t, feed)
	if depth.Type != "orderbook" || depth.Side != "bid" || depth.Quantity != 100 {
		t.Fatalf("depth msg = %+v, want orderbook bid/100", depth)
	}

	// Cancel the remaining bid.
	alice.send(t, dto.ClientRequest{Message: "cancelOrder", OrderID: "223"})
	if ack := readMessage[dto.CancelAck](t, alice); ack.Message != "cancelOrder" || ack.OrderID != "223" {
		t.Fatalf("ack = %+v", ack)
	}
	cancel := readMessage[dto.DatastreamMessage](t, feed)
	if cancel.Type != "cancel" || cancel.Side != "bid" || cancel.Quantity != 100 {
		t.Fatalf("cancel msg = %+v, want cancel bid/100", cancel)
	}
}

func TestCreateOrderRejected(t *testing.T) {
	orderServer, _ := startServers(t)

	c := dialTest(t, orderServer.Addr())
	c.send(t, dto.ClientRequest{Message: "createOrder", OrderID: "1", Side: "BUY", Price: dec(t, "10"), Quantity: 0})

	if rep := readMessage[dto.ExecutionReport](t, c); rep.Report != dto.ReportNew {
		t.Fatalf("report = %q, want NEW", rep.Report)
	}
	rej := readMessage[dto.ExecutionReport](t, c)
	if rej.Report != dto.ReportRejected || rej.Reason == "" {
		t.Fatalf("report = %+v, want REJECTED with reason", rej)
	}
}

func TestNumericOrderIDs(t *testing.T) {
	orderServer, _ := startServers(t)

	c := dialTest(t, orderServer.Addr())
	// Simulator clients send numeric order ids; they must round-trip.
	if _, err := c.conn.Write([]byte(`{"message":"createOrder","orderId":42,"side":"BUY","price":100,"quantity":5}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	rep := readMessage[dto.ExecutionReport](t, c)
	if rep.Report != dto.ReportNew || rep.OrderID != "42" {
		t.Fatalf("report = %+v, want NEW for order 42", rep)
	}
}

func waitForSubscribers(t *testing.T, s *DatastreamServer, n int) {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	for s.SubscriberCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("datastream subscribers = %d, want %d", s.SubscriberCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
