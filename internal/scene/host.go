package scene

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/playforge/netcore/internal/client"
	"github.com/playforge/netcore/internal/discovery"
	"github.com/playforge/netcore/internal/server"
)

const (
	// IDWaitTimeout bounds how long a HostScene/ClientScene waits for its
	// loopback/remote handshake to complete before giving up.
	IDWaitTimeout = 2 * time.Second
	// IDWaitInterval is the polling increment used while waiting.
	IDWaitInterval = 50 * time.Millisecond
)

// HostScene owns a Server and participates in it as a normal client: the
// host player gets an ordinary ClientId like anyone else.
type HostScene struct {
	*NetworkScene

	Server                *server.Server
	ConnectionSuccessful  bool

	cancel context.CancelFunc
}

// HostOption configures the underlying Server.
type HostOption = server.ServerOption

// NewHostScene starts a Server bound to reliableAddr advertising gameID
// (optionally via discoverySvc), then connects a local Client to it over
// loopback and waits up to IDWaitTimeout for the handshake to complete.
func NewHostScene(reliableAddr, gameID string, discoverySvc discovery.Service, hooks Hooks, opts ...HostOption) *HostScene {
	allOpts := append([]server.ServerOption{
		server.WithListenAddr(reliableAddr),
		server.WithGameID(gameID),
	}, opts...)
	if discoverySvc != nil {
		allOpts = append(allOpts, server.WithDiscovery(discoverySvc))
	}
	srv := server.NewServer(allOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(IDWaitTimeout):
		// Server failed to come up in time; the loopback dial below will
		// fail quickly and ConnectionSuccessful will be false.
	}

	host, portStr, err := net.SplitHostPort(srv.Addr())
	port, _ := strconv.Atoi(portStr)
	if err != nil || host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	c := client.New(host, port, gameID)

	hs := &HostScene{
		NetworkScene: New(c, hooks),
		Server:       srv,
		cancel:       cancel,
	}

	deadline := time.Now().Add(IDWaitTimeout)
	for time.Now().Before(deadline) {
		if c.ID() != "" {
			hs.ConnectionSuccessful = true
			return hs
		}
		time.Sleep(IDWaitInterval)
	}
	hs.ConnectionSuccessful = c.ID() != ""
	return hs
}

// Stop tears down the local client and the owned Server.
func (hs *HostScene) Stop() {
	hs.NetworkScene.Stop()
	if hs.cancel != nil {
		hs.cancel()
	}
	if hs.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Server.Shutdown(ctx)
	}
}
