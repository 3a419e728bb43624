package wire

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/book"
)

const (
	maxRecvSize        = 4 * 1024
	defaultConnWorkers = 10
	defaultConnTimeout = time.Second
)

// Engine is the subset of live order handling the wire server needs.
// cmd/server supplies an implementation backed by book.OrderBook.
type Engine interface {
	PlaceOrder(symbol string, side book.Side, typ book.Type, price int64, quantity uint64, clientID string) (uint64, []book.Trade)
	CancelOrder(symbol string, orderID uint64) bool
}

type clientSession struct {
	conn net.Conn
}

type clientMessage struct {
	clientAddress string
	message       Message
}

// Server is a TCP front end that parses wire messages and drives an
// Engine, reporting fills and errors back over the originating
// connection. Connection handling runs on a bounded errgroup pool of
// workers; the session handler that dispatches parsed messages runs under a
// tomb. The accept loop runs in Run itself.
type Server struct {
	address string
	port    int
	engine  Engine
	workers int

	sessionsLock sync.Mutex
	sessions     map[string]clientSession

	messages chan clientMessage
	cancel   context.CancelFunc
}

// New creates a server bound to address:port, driving engine, with workers
// concurrent connection handlers.
func New(address string, port int, engine Engine, workers int) *Server {
	if workers <= 0 {
		workers = defaultConnWorkers
	}
	return &Server{
		address:  address,
		port:     port,
		engine:   engine,
		workers:  workers,
		sessions: make(map[string]clientSession),
		messages: make(chan clientMessage, workers),
	}
}

// Shutdown cancels the server's run context, unwinding the accept loop and
// every in-flight connection handler.
func (s *Server) Shutdown() {
	log.Info().Msg("wire server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run starts the listener, the session handler, and the connection pool,
// blocking until ctx is cancelled or a fatal error is hit.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("unable to start listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("error closing listener")
		}
	}()

	conns := make(chan net.Conn, s.workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			return s.connectionWorker(gctx, conns)
		})
	}

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("wire server listening")

	for {
		select {
		case <-ctx.Done():
			close(conns)
			_ = g.Wait()
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					close(conns)
					_ = g.Wait()
					return nil
				default:
					log.Error().Err(err).Msg("error accepting client")
					continue
				}
			}
			s.addSession(conn)
			select {
			case conns <- conn:
			case <-ctx.Done():
				_ = conn.Close()
			}
		}
	}
}

// connectionWorker pulls accepted connections off conns until it is closed
// or the context is cancelled, handling one message per connection before
// returning it to the channel for its next read.
func (s *Server) connectionWorker(ctx context.Context, conns <-chan net.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case conn, ok := <-conns:
			if !ok {
				return nil
			}
			if err := s.handleConnection(ctx, conn, conns); err != nil {
				log.Error().Err(err).Msg("connection worker error")
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, conns chan<- net.Conn) error {
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Msg("failed setting connection deadline")
		s.closeConn(conn)
		return nil
	}

	buf := make([]byte, maxRecvSize)
	n, err := conn.Read(buf)
	if err != nil {
		s.closeConn(conn)
		return nil
	}

	msg, err := ParseMessage(buf[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing wire message")
		s.closeConn(conn)
		return nil
	}

	select {
	case s.messages <- clientMessage{clientAddress: conn.RemoteAddr().String(), message: msg}:
	case <-ctx.Done():
		return nil
	}

	select {
	case conns <- conn:
	case <-ctx.Done():
		s.closeConn(conn)
	}
	return nil
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.dispatch(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("error handling message")
				s.reportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) dispatch(msg clientMessage) error {
	switch msg.message.GetType() {
	case NewOrder:
		m, ok := msg.message.(NewOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		price := book.DoubleToPrice(m.LimitPrice)
		orderID, trades := s.engine.PlaceOrder(m.Symbol, m.Side, m.Type, price, m.Quantity, m.ClientOrderID())
		for _, tr := range trades {
			report := NewExecutionReport(m.Symbol, m.Side, tr, orderID)
			s.reportTo(msg.clientAddress, report)
		}
	case CancelOrder:
		m, ok := msg.message.(CancelOrderMessage)
		if !ok {
			return ErrInvalidMessageType
		}
		s.engine.CancelOrder(m.Symbol, m.OrderID)
	case LogBook:
		log.Info().Str("clientAddress", msg.clientAddress).Msg("log book requested")
	default:
		return ErrInvalidMessageType
	}
	return nil
}

func (s *Server) reportTo(clientAddress string, report Report) {
	s.sessionsLock.Lock()
	session, ok := s.sessions[clientAddress]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	if _, err := session.conn.Write(report.Serialize()); err != nil {
		log.Error().Err(err).Str("clientAddress", clientAddress).Msg("unable to send report")
		s.deleteSession(clientAddress)
	}
}

func (s *Server) reportError(clientAddress string, err error) {
	s.reportTo(clientAddress, NewErrorReport(err))
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, address)
}

func (s *Server) closeConn(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	if err := conn.Close(); err != nil {
		log.Error().Err(err).Str("address", addr).Msg("error closing connection")
	}
	s.deleteSession(addr)
}
