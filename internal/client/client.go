// Package client implements the peer side of the session-sync protocol:
// a reliable handshake that yields an identity, and an unreliable fast
// path that pushes local state and receives the server's aggregated
// broadcast, with heartbeat-based liveness detection.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playforge/netcore/internal/logging"
	"github.com/playforge/netcore/internal/wire"
)

const (
	// ConnectionTimeout bounds the initial reliable connect + handshake.
	ConnectionTimeout = 7 * time.Second
	// UDPSocketTimeout is the soft receive timeout the fast listener polls
	// at; it feeds the heartbeat check, it is not itself a disconnect.
	UDPSocketTimeout = 1 * time.Second
	// DisconnectTimeout is how long without a well-formed datagram before
	// the client declares itself disconnected.
	DisconnectTimeout = 5 * time.Second
)

// Client is constructed already connected (or not): New performs the full
// reliable handshake synchronously before returning.
type Client struct {
	id             string
	serverFastPort uint16

	connected atomic.Bool
	running   atomic.Bool

	stateMu        sync.Mutex
	latestState    map[string]interface{}
	lastPacketTime time.Time

	conn     net.Conn
	fastConn *net.UDPConn

	logger *slog.Logger
	wg     sync.WaitGroup
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger overrides the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New performs the full reliable handshake with host:reliablePort for the
// given gameID. On any failure Connected() returns false and id is never
// assigned; the caller need not inspect an error to follow the spec's
// contract, though errors encountered are logged.
func New(host string, reliablePort int, gameID string, opts ...Option) *Client {
	c := &Client{
		latestState: make(map[string]interface{}),
		logger:      logging.L(),
	}
	for _, o := range opts {
		o(c)
	}

	addr := net.JoinHostPort(host, fmt.Sprint(reliablePort))
	conn, err := net.DialTimeout("tcp", addr, ConnectionTimeout)
	if err != nil {
		c.logger.Warn("client_dial_failed", "addr", addr, "error", fmt.Errorf("%w: %v", ErrDialTimeout, err))
		return c
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	payload, err := wire.EncodePayload(wire.Handshake{GameID: gameID})
	if err != nil {
		_ = conn.Close()
		c.logger.Error("client_handshake_encode_failed", "error", err)
		return c
	}
	_ = conn.SetDeadline(time.Now().Add(ConnectionTimeout))
	if err := wire.WriteFrame(conn, payload); err != nil {
		_ = conn.Close()
		c.logger.Warn("client_handshake_write_failed", "error", fmt.Errorf("%w: %v", ErrHandshake, err))
		return c
	}
	body, err := wire.ReadFrame(conn)
	if err != nil {
		_ = conn.Close()
		c.logger.Warn("client_handshake_read_failed", "error", fmt.Errorf("%w: %v", ErrHandshake, err))
		return c
	}
	_ = conn.SetDeadline(time.Time{})

	var reply wire.IDAssignment
	if err := wire.DecodePayload(body, &reply); err != nil || reply.Type != "id_assignment" {
		_ = conn.Close()
		c.logger.Warn("client_handshake_bad_reply", "error", fmt.Errorf("%w", ErrUnexpectedMsg))
		return c
	}

	fastAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, fmt.Sprint(reply.FastPort)))
	if err != nil {
		_ = conn.Close()
		c.logger.Error("client_fast_resolve_failed", "error", err)
		return c
	}
	fastConn, err := net.DialUDP("udp", nil, fastAddr)
	if err != nil {
		_ = conn.Close()
		c.logger.Error("client_fast_dial_failed", "error", err)
		return c
	}
	_ = fastConn.SetReadBuffer(wire.UDPBufferSize)

	c.conn = conn
	c.fastConn = fastConn
	c.id = reply.ID
	c.serverFastPort = reply.FastPort
	c.running.Store(true)
	c.connected.Store(true)
	c.stateMu.Lock()
	c.lastPacketTime = time.Now()
	c.stateMu.Unlock()

	c.logger.Info("client_connected", "client_id", c.id, "fast_port", c.serverFastPort)

	c.wg.Add(1)
	go c.fastListenLoop()

	// Registration datagram: any non-empty payload teaches the server our
	// unreliable endpoint.
	c.SendUpdate(map[string]interface{}{"register": true})

	return c
}

// ID returns the server-assigned client id, or "" if never assigned.
func (c *Client) ID() string { return c.id }

// Connected reports current liveness as observed by the fast listener.
func (c *Client) Connected() bool { return c.connected.Load() }

// fastListenLoop is the heartbeat-driven receive loop: data resets the
// deadline clock, a prolonged silence past DisconnectTimeout flips
// Connected to false and exits.
func (c *Client) fastListenLoop() {
	defer c.wg.Done()
	buf := make([]byte, wire.UDPBufferSize)
	for c.running.Load() {
		_ = c.fastConn.SetReadDeadline(time.Now().Add(UDPSocketTimeout))
		n, err := c.fastConn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.stateMu.Lock()
				silence := time.Since(c.lastPacketTime)
				c.stateMu.Unlock()
				if silence > DisconnectTimeout {
					c.connected.Store(false)
					c.logger.Info("client_heartbeat_timeout", "client_id", c.id, "silence", silence)
					return
				}
				continue
			}
			c.connected.Store(false)
			c.logger.Debug("client_fast_read_error", "client_id", c.id, "error", err)
			return
		}

		var state map[string]interface{}
		if err := wire.DecodePayload(buf[:n], &state); err != nil {
			continue // decode errors do not change connected
		}
		c.stateMu.Lock()
		c.lastPacketTime = time.Now()
		c.latestState = state
		c.stateMu.Unlock()
	}
}

// GetLatestState returns a snapshot copy of the most recently received
// aggregated game state.
func (c *Client) GetLatestState() map[string]interface{} {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	out := make(map[string]interface{}, len(c.latestState))
	for k, v := range c.latestState {
		out[k] = v
	}
	return out
}

// SendUpdate pushes payload to the server's fast path. A silent no-op if
// not connected, not id-assigned, or not running.
func (c *Client) SendUpdate(payload interface{}) {
	if !c.running.Load() || !c.connected.Load() || c.id == "" {
		return
	}
	update := wire.FastUpdate{ClientID: c.id, Payload: payload}
	data, err := wire.EncodePayload(update)
	if err != nil {
		c.logger.Debug("client_send_encode_failed", "error", err)
		return
	}
	if err := wire.CheckDatagramSize(data); err != nil {
		c.logger.Debug("client_send_oversize", "error", err)
		return
	}
	if _, err := c.fastConn.Write(data); err != nil {
		c.logger.Debug("client_send_failed", "error", err)
	}
}

// Stop closes both sockets and stops the fast listener. Idempotent;
// tolerates already-closed sockets.
func (c *Client) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.connected.Store(false)
	if c.fastConn != nil {
		_ = c.fastConn.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.wg.Wait()
}
