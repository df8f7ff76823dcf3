package tcp

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/olyamironova/exchange-simulator/internal/api/dto"
	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

var _ port.DatastreamSink = (*DatastreamServer)(nil)

// DatastreamServer is the anonymous public channel: clients connect and
// receive every trade/orderbook/cancel report; nothing they send is acted
// upon. A slow or broken subscriber is dropped, never reported upstream.
type DatastreamServer struct {
	log *slog.Logger

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	nextID  int64
	clients map[int64]*client
}

func NewDatastreamServer(log *slog.Logger) *DatastreamServer {
	if log == nil {
		log = slog.Default()
	}
	return &DatastreamServer{
		log:     log,
		clients: make(map[int64]*client),
	}
}

func (s *DatastreamServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.serve()
	s.log.Info("datastream server listening", "addr", ln.Addr().String())
	return nil
}

func (s *DatastreamServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *DatastreamServer) Stop() {
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

func (s *DatastreamServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.Warn("datastream accept failed", "err", err)
			continue
		}
		s.mu.Lock()
		s.nextID++
		id := s.nextID
		s.clients[id] = &client{conn: conn}
		s.mu.Unlock()
		go s.drain(conn, id)
	}
}

// drain keeps the read side open to detect disconnects; incoming data is
// discarded.
func (s *DatastreamServer) drain(conn net.Conn, id int64) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
	}
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	_ = conn.Close()
}

// SendDatastreamReport broadcasts one report to all subscribers. Always
// returns nil: a broken subscriber must not look like an exchange failure.
func (s *DatastreamServer) SendDatastreamReport(ctx context.Context, r domain.DatastreamReport) error {
	msg := dto.DatastreamMessage{
		Type:     string(r.Type),
		Price:    r.Price.String(),
		Quantity: r.Qty,
		Time:     unixSeconds(r.Time),
	}
	if r.Type != domain.ReportTrade {
		msg.Side = wireSide(r.Side)
	}

	s.mu.RLock()
	targets := make(map[int64]*client, len(s.clients))
	for id, c := range s.clients {
		targets[id] = c
	}
	s.mu.RUnlock()

	for id, c := range targets {
		if err := c.sendJSON(msg); err != nil {
			s.log.Warn("datastream write failed, dropping subscriber", "subscriber", id, "err", err)
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()
			_ = c.conn.Close()
		}
	}
	return nil
}

// SubscriberCount reports connected datastream clients.
func (s *DatastreamServer) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
