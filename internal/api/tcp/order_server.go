package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/api/dto"
	"github.com/olyamironova/exchange-simulator/internal/core"
	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.FillSink = (*OrderServer)(nil)

// OrderServer is the private order channel: line-delimited JSON over TCP.
// Each connection gets a fresh client id from the exchange; fill reports
// are routed back to the connection that owns the filled order.
type OrderServer struct {
	exchange *core.Exchange
	log      *slog.Logger

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	clients map[int64]*client
}

func NewOrderServer(exchange *core.Exchange, log *slog.Logger) *OrderServer {
	if log == nil {
		log = slog.Default()
	}
	return &OrderServer{
		exchange: exchange,
		log:      log,
		clients:  make(map[int64]*client),
	}
}

// Start binds the listener and accepts connections until Stop.
func (s *OrderServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.serve()
	s.log.Info("order server listening", "addr", ln.Addr().String())
	return nil
}

func (s *OrderServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and aborts all client connections.
func (s *OrderServer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		_ = c.conn.Close()
		delete(s.clients, id)
	}
}

func (s *OrderServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}
		id := s.exchange.NextClientID()
		s.addClient(id, conn)
		go s.handleClient(conn, id)
	}
}

func (s *OrderServer) addClient(id int64, conn net.Conn) {
	s.mu.Lock()
	s.clients[id] = &client{conn: conn}
	s.mu.Unlock()
}

func (s *OrderServer) delClient(id int64) {
	s.mu.Lock()
	c, ok := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (s *OrderServer) handleClient(conn net.Conn, id int64) {
	defer s.delClient(id)
	s.log.Info("client connected", "client_id", id)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req dto.ClientRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn("malformed request", "client_id", id, "err", err)
			continue
		}
		switch req.Message {
		case "createOrder":
			s.handleCreate(id, req)
		case "cancelOrder":
			s.handleCancel(id, req)
		default:
			s.log.Warn("unknown message", "client_id", id, "message", req.Message)
		}
	}
	s.log.Info("client disconnected", "client_id", id)
}

func (s *OrderServer) handleCreate(id int64, req dto.ClientRequest) {
	s.reply(id, dto.ExecutionReport{
		Message: "executionReport",
		Report:  dto.ReportNew,
		OrderID: req.OrderID,
	})
	err := s.exchange.OpenOrder(s.ctx, string(req.OrderID), id, domain.Side(req.Side), req.Price, req.Quantity)
	if err != nil {
		s.reply(id, dto.ExecutionReport{
			Message: "executionReport",
			Report:  dto.ReportRejected,
			OrderID: req.OrderID,
			Reason:  err.Error(),
		})
	}
}

func (s *OrderServer) handleCancel(id int64, req dto.ClientRequest) {
	s.reply(id, dto.CancelAck{
		Message: "cancelOrder",
		OrderID: req.OrderID,
	})
	if err := s.exchange.CancelOrder(s.ctx, id, string(req.OrderID)); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.log.Warn("cancel missed", "client_id", id, "order_id", string(req.OrderID))
			return
		}
		s.log.Error("cancel failed", "client_id", id, "err", err)
	}
}

func (s *OrderServer) reply(id int64, v any) {
	s.mu.RLock()
	c, ok := s.clients[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.sendJSON(v); err != nil {
		s.log.Warn("write failed", "client_id", id, "err", err)
	}
}

// FillOrderReport sends the private execution report to the owning client.
// A disconnected client just misses its report.
func (s *OrderServer) FillOrderReport(ctx context.Context, clientID int64, orderID string, price decimal.Decimal, qty int64) error {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.sendJSON(dto.ExecutionReport{
		Message:  "executionReport",
		Report:   dto.ReportFill,
		OrderID:  dto.FlexID(orderID),
		Price:    price.String(),
		Quantity: qty,
	})
}
