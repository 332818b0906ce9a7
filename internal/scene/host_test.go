package scene

import (
	"net"
	"strconv"
	"testing"
)

func TestHostScene_LoopbackHandshakeSucceeds(t *testing.T) {
	hs := NewHostScene("127.0.0.1:0", "T", nil, Hooks{})
	defer hs.Stop()

	if !hs.ConnectionSuccessful {
		t.Fatalf("expected host's own loopback client to connect")
	}
	if hs.Client.ID() == "" {
		t.Fatalf("expected host client to have a client id")
	}
}

func TestClientScene_WrongGameIDFailsToConnect(t *testing.T) {
	hs := NewHostScene("127.0.0.1:0", "A", nil, Hooks{})
	defer hs.Stop()
	if !hs.ConnectionSuccessful {
		t.Fatalf("host setup failed")
	}

	_, portStr, err := net.SplitHostPort(hs.Server.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	cs := NewClientScene("127.0.0.1", port, "B", Hooks{})
	defer cs.Stop()
	if cs.ConnectionSuccessful {
		t.Fatalf("expected mismatched game_id to fail to connect")
	}
}
