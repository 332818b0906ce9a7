// Package server implements the authoritative session-sync host: it
// accepts reliable handshakes, assigns identities, and relays the
// unreliable per-frame state every handshaked client pushes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playforge/netcore/internal/discovery"
	"github.com/playforge/netcore/internal/logging"
	"github.com/playforge/netcore/internal/metrics"
	"github.com/playforge/netcore/internal/session"
	"github.com/playforge/netcore/internal/transport"
	"github.com/playforge/netcore/internal/wire"
)

const (
	defaultHandshakeTimeout = 3 * time.Second
	defaultReadDeadline     = 60 * time.Second
)

// Server owns the reliable listener, the unreliable fast-path socket, the
// session registry, and (optionally) a discovery service advertising this
// host on the LAN.
type Server struct {
	mu             sync.RWMutex
	addr           string
	gameID         string
	discoverySvc   discovery.Service
	maxClients     int
	handshakeTime  time.Duration
	readDeadline   time.Duration
	logger         *slog.Logger

	registry   *session.Registry
	dispatcher *transport.BroadcastDispatcher

	readyOnce sync.Once
	readyCh   chan struct{}
	errCh     chan error
	lastErrMu sync.Mutex
	lastErr   error

	listener net.Listener
	fastConn net.PacketConn
	fastPort uint16

	wg     sync.WaitGroup
	cancel context.CancelFunc

	totalAccepted      atomic.Uint64
	totalHandshakeFail atomic.Uint64
	totalConnected     atomic.Uint64
	totalDisconnected  atomic.Uint64
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// NewServer builds a Server; Serve must be called to start accepting.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		gameID:        "default",
		handshakeTime: defaultHandshakeTimeout,
		readDeadline:  defaultReadDeadline,
		readyCh:       make(chan struct{}),
		errCh:         make(chan error, 1),
		registry:      session.New(),
		logger:        logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.addr == "" {
		s.addr = ":0"
	}
	return s
}

func WithListenAddr(a string) ServerOption { return func(s *Server) { s.addr = a } }
func WithGameID(id string) ServerOption    { return func(s *Server) { s.gameID = id } }
func WithDiscovery(d discovery.Service) ServerOption {
	return func(s *Server) { s.discoverySvc = d }
}
func WithHandshakeTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.handshakeTime = d
		}
	}
}
func WithReadDeadline(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.readDeadline = d
		}
	}
}
func WithMaxClients(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxClients = n
		}
	}
}
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func (s *Server) Addr() string           { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *Server) setAddr(a string)       { s.mu.Lock(); s.addr = a; s.mu.Unlock() }
func (s *Server) FastPort() uint16       { s.mu.RLock(); defer s.mu.RUnlock(); return s.fastPort }
func (s *Server) Ready() <-chan struct{} { return s.readyCh }
func (s *Server) Errors() <-chan error   { return s.errCh }
func (s *Server) Registry() *session.Registry { return s.registry }

func (s *Server) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *Server) LastError() error { s.lastErrMu.Lock(); defer s.lastErrMu.Unlock(); return s.lastErr }

// Serve opens the reliable listener and the unreliable fast-path socket,
// then spawns the acceptor, fast receiver, and (if configured) discovery
// advertiser as independent activities: a crash in one must not stall
// another. Blocks until ctx is cancelled or a fatal listener error occurs.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	addr := s.addr
	s.mu.Unlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.listener = ln

	bindHost, _, _ := net.SplitHostPort(ln.Addr().String())
	fastConn, err := net.ListenPacket("udp", net.JoinHostPort(bindHost, "0"))
	if err != nil {
		_ = ln.Close()
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.fastConn = fastConn
	if udpAddr, ok := fastConn.LocalAddr().(*net.UDPAddr); ok {
		s.fastPort = uint16(udpAddr.Port)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.dispatcher = transport.NewBroadcastDispatcher(ctx, func(_ interface{}) { s.broadcastNow() })
	s.dispatcher.OnCoalesced = metrics.IncBroadcastCoalesced

	if s.readyCh != nil {
		s.readyOnce.Do(func() { close(s.readyCh) })
	}
	s.logger.Info("tcp_listen", "addr", s.Addr(), "fast_port", s.fastPort, "game_id", s.gameID)

	if s.discoverySvc != nil {
		if err := s.discoverySvc.StartAdvertising(s.gameID, uint16(mustPort(s.Addr()))); err != nil {
			s.logger.Warn("discovery_start_failed", "error", err)
		}
	}

	go func() { <-ctx.Done(); _ = ln.Close(); _ = fastConn.Close() }()
	s.wg.Add(1)
	go s.fastReceiveLoop(ctx)

	s.logger.Info("ready")
	for {
		if err := s.acceptOnce(ctx, ln); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return err
		}
	}
}

func mustPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}

func (s *Server) acceptOnce(ctx context.Context, ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		wrap := fmt.Errorf("%w: %v", ErrAccept, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.totalAccepted.Add(1)
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	if s.maxClients > 0 && s.registry.Count() >= s.maxClients {
		connLogger.Warn("client_reject_max", "max_clients", s.maxClients)
		_ = conn.Close()
		return nil
	}

	id, err := s.handshake(ctx, conn)
	if err != nil {
		metrics.IncHandshakeRejected()
		s.totalHandshakeFail.Add(1)
		connLogger.Warn("handshake_failed", "error", err)
		_ = conn.Close()
		return nil
	}

	metrics.IncHandshakeAccepted()
	sess := &session.Session{ID: id, Conn: conn, ConnectedAt: time.Now()}
	s.registry.AddSession(sess)
	s.totalConnected.Add(1)
	connLogger = connLogger.With("client_id", string(id))
	connLogger.Info("client_connected")

	s.wg.Add(1)
	go s.livenessLoop(ctx, conn, id, connLogger)
	return nil
}

// livenessLoop is the per-session reliable read loop: every framed message
// read keeps the session alive (no application messages are currently
// defined; this is purely a liveness channel). A closed/errored read tears
// the session down.
func (s *Server) livenessLoop(ctx context.Context, conn net.Conn, id session.ClientID, logger *slog.Logger) {
	defer s.wg.Done()
	defer func() {
		s.registry.RemoveSession(id)
		s.totalDisconnected.Add(1)
		logger.Info("client_disconnected")
	}()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
		_, err := wire.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, wire.ErrClosed) {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
			metrics.IncError(mapErrToMetric(wrap))
			logger.Debug("liveness_read_error", "error", wrap)
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Shutdown closes the listener, the fast-path socket, every reliable
// session, and stops discovery advertising.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.discoverySvc != nil {
		s.discoverySvc.StopAdvertising()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	fc := s.fastConn
	s.fastConn = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	if fc != nil {
		_ = fc.Close()
	}
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
	s.registry.CloseAll()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_summary",
			"accepted", s.totalAccepted.Load(),
			"handshake_fail", s.totalHandshakeFail.Load(),
			"connected", s.totalConnected.Load(),
			"disconnected", s.totalDisconnected.Load())
		return nil
	}
}
