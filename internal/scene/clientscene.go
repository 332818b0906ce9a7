package scene

import (
	"time"

	"github.com/playforge/netcore/internal/client"
)

// ClientScene connects to a remote host and waits up to IDWaitTimeout for
// the handshake to complete, without owning a Server.
type ClientScene struct {
	*NetworkScene

	ConnectionSuccessful bool
}

// NewClientScene dials host:reliablePort for gameID and polls for id
// assignment.
func NewClientScene(host string, reliablePort int, gameID string, hooks Hooks) *ClientScene {
	c := client.New(host, reliablePort, gameID)

	cs := &ClientScene{NetworkScene: New(c, hooks)}

	deadline := time.Now().Add(IDWaitTimeout)
	for time.Now().Before(deadline) {
		if c.ID() != "" {
			cs.ConnectionSuccessful = true
			return cs
		}
		time.Sleep(IDWaitInterval)
	}
	cs.ConnectionSuccessful = c.ID() != ""
	return cs
}
