// Package session owns the server's authoritative, mutex-guarded view of
// connected clients: their reliable sessions, their learned unreliable
// endpoints, and the latest payload each has pushed.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/playforge/netcore/internal/metrics"
)

// Payload is an opaque, application-defined value. The framework never
// interprets it.
type Payload = interface{}

// GameState maps every known client to its most recent payload.
type GameState map[ClientID]Payload

// Conn is the minimal reliable-stream surface the registry needs; satisfied
// by net.Conn.
type Conn interface {
	Close() error
}

// Session is the server-side record of one handshaked client.
type Session struct {
	ID          ClientID
	Conn        Conn
	ConnectedAt time.Time
}

// Registry is the server's three coupled dictionaries — game_state,
// client_map (learned fast-path endpoints), and clients_tcp (live
// sessions) — guarded by a single mutex so that removing a session is
// atomic across all three, per spec invariant 3.2.
type Registry struct {
	mu       sync.Mutex
	sessions map[ClientID]*Session
	fastAddr map[ClientID]net.Addr
	state    GameState
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[ClientID]*Session),
		fastAddr: make(map[ClientID]net.Addr),
		state:    make(GameState),
	}
}

// AddSession registers a freshly handshaked client. It does not touch
// fastAddr/state: those are populated lazily by the first fast-path
// datagram (spec: "a client may only appear in client_map after it has
// sent at least one unreliable packet").
func (r *Registry) AddSession(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.SetSessionsActive(n)
	metrics.IncSessionsTotal()
}

// RemoveSession tears a session down: its reliable stream entry,
// fast-path endpoint, and game-state entry are deleted as one atomic
// group, then the connection is closed. Safe to call more than once.
func (r *Registry) RemoveSession(id ClientID) {
	r.mu.Lock()
	s, existed := r.sessions[id]
	delete(r.sessions, id)
	delete(r.fastAddr, id)
	delete(r.state, id)
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SetSessionsActive(n)
	if existed && s.Conn != nil {
		_ = s.Conn.Close()
	}
}

// RecordFastUpdate applies one well-formed unreliable datagram: it learns
// the sender's fast-path endpoint on first sight (never changing it
// thereafter for the session) and overwrites game_state[id] with payload.
// The client_id need not have completed a handshake; this is the
// registration mechanism for the fast path (spec §4.C).
func (r *Registry) RecordFastUpdate(id ClientID, addr net.Addr, payload Payload) {
	r.mu.Lock()
	if _, known := r.fastAddr[id]; !known {
		r.fastAddr[id] = addr
	}
	r.state[id] = payload
	r.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the game state and the set of
// fast-path endpoints to broadcast to. Safe to use without further
// locking; the maps are independent copies.
func (r *Registry) Snapshot() (GameState, map[ClientID]net.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := make(GameState, len(r.state))
	for k, v := range r.state {
		state[k] = v
	}
	addrs := make(map[ClientID]net.Addr, len(r.fastAddr))
	for k, v := range r.fastAddr {
		addrs[k] = v
	}
	return state, addrs
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes and removes every session, used during server Stop.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[ClientID]*Session)
	r.fastAddr = make(map[ClientID]net.Addr)
	r.state = make(GameState)
	r.mu.Unlock()

	metrics.SetSessionsActive(0)
	for _, s := range sessions {
		if s.Conn != nil {
			_ = s.Conn.Close()
		}
	}
}
