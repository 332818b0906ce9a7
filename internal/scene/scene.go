// Package scene bridges a synchronous per-frame game loop to the
// asynchronous network I/O owned by a Client: each frame, fresh remote
// state is delivered before local state is pushed.
package scene

import (
	"github.com/playforge/netcore/internal/client"
)

// Hooks is the user-defined contract a NetworkScene drives every frame.
type Hooks struct {
	// GetLocalState is called once per frame; a nil return means "skip
	// send this frame".
	GetLocalState func() interface{}
	// HandleNetworkState is called once per frame with a copy of the
	// latest aggregated state, whenever that state is non-empty. The same
	// state is passed again on later frames until a new broadcast arrives.
	HandleNetworkState func(state map[string]interface{})
	// OnServerDisconnect is called once, the first frame after the
	// client reports disconnected. Defaults to a no-op if nil (the
	// scene still stops driving Push/Pull once disconnected).
	OnServerDisconnect func()
}

// NetworkScene drives one frame of the receive-then-send protocol against
// a Client. It never blocks on network I/O: all I/O happens on goroutines
// owned by Client.
type NetworkScene struct {
	Client *client.Client
	Hooks  Hooks

	disconnectFired bool
}

// New wraps an already-constructed Client (connected or not) with the
// given per-frame hooks.
func New(c *client.Client, hooks Hooks) *NetworkScene {
	return &NetworkScene{Client: c, Hooks: hooks}
}

// Process runs one frame: if the client has disconnected, fire
// OnServerDisconnect (once) and return without touching the network this
// frame. Otherwise pull fresh state (if any), then push local state (if
// any).
func (s *NetworkScene) Process() {
	if s.Client == nil || !s.Client.Connected() {
		if !s.disconnectFired {
			s.disconnectFired = true
			if s.Hooks.OnServerDisconnect != nil {
				s.Hooks.OnServerDisconnect()
			}
		}
		return
	}
	s.disconnectFired = false

	if s.Hooks.HandleNetworkState != nil {
		state := s.Client.GetLatestState()
		if len(state) > 0 {
			s.Hooks.HandleNetworkState(state)
		}
	}

	if s.Client.ID() != "" && s.Hooks.GetLocalState != nil {
		if payload := s.Hooks.GetLocalState(); payload != nil {
			s.Client.SendUpdate(payload)
		}
	}
}

// Stop tears down the underlying client. Idempotent.
func (s *NetworkScene) Stop() {
	if s.Client != nil {
		s.Client.Stop()
	}
}
