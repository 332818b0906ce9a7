package client

import (
	"net"
	"testing"
	"time"

	"github.com/playforge/netcore/internal/wire"
)

// fakeServer is a minimal handshake+fast-path stand-in, just enough to
// drive Client through construction without pulling in the server package.
type fakeServer struct {
	ln       net.Listener
	fastConn *net.UDPConn
	fastPort uint16
}

func startFakeServer(t *testing.T, gameID string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	fastConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	fs := &fakeServer{ln: ln, fastConn: fastConn, fastPort: uint16(fastConn.LocalAddr().(*net.UDPAddr).Port)}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		body, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		var hello wire.Handshake
		if err := wire.DecodePayload(body, &hello); err != nil || hello.GameID != gameID {
			return
		}
		reply := wire.NewIDAssignment("fake-client-id", fs.fastPort)
		payload, _ := wire.EncodePayload(reply)
		_ = wire.WriteFrame(conn, payload)
		// keep the reliable stream open for liveness; no more frames expected
		buf := make([]byte, 4)
		_, _ = conn.Read(buf)
	}()

	go func() {
		buf := make([]byte, wire.UDPBufferSize)
		for {
			n, addr, err := fastConn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			var up wire.FastUpdate
			if wire.DecodePayload(buf[:n], &up) != nil {
				continue
			}
			state := map[string]interface{}{up.ClientID: up.Payload}
			reply, _ := wire.EncodePayload(state)
			_, _ = fastConn.WriteToUDP(reply, addr)
		}
	}()

	return fs
}

func (fs *fakeServer) close() {
	_ = fs.ln.Close()
	_ = fs.fastConn.Close()
}

func (fs *fakeServer) port() int {
	return fs.ln.Addr().(*net.TCPAddr).Port
}

func TestClient_HandshakeAndFastPathRoundTrip(t *testing.T) {
	fs := startFakeServer(t, "T")
	defer fs.close()

	c := New("127.0.0.1", fs.port(), "T")
	defer c.Stop()

	if !c.Connected() {
		t.Fatalf("expected client to be connected")
	}
	if c.ID() != "fake-client-id" {
		t.Fatalf("unexpected client id %q", c.ID())
	}

	c.SendUpdate(map[string]interface{}{"pos": []int{1, 2}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := c.GetLatestState()
		if _, ok := state["fake-client-id"]; ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("did not observe own state echoed back")
}

func TestClient_GameIDMismatchNeverConnects(t *testing.T) {
	fs := startFakeServer(t, "A")
	defer fs.close()

	c := New("127.0.0.1", fs.port(), "B")
	defer c.Stop()

	if c.Connected() {
		t.Fatalf("expected client to report not connected on game_id mismatch")
	}
	if c.ID() != "" {
		t.Fatalf("expected no id assigned, got %q", c.ID())
	}
}

func TestClient_DialFailureIsNotConnected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close() // nothing is listening now

	c := New("127.0.0.1", addr.Port, "T")
	defer c.Stop()
	if c.Connected() {
		t.Fatalf("expected connection failure to leave client not connected")
	}
}

func TestClient_StopIsIdempotent(t *testing.T) {
	fs := startFakeServer(t, "T")
	defer fs.close()

	c := New("127.0.0.1", fs.port(), "T")
	c.Stop()
	c.Stop() // must not panic or block
}

func TestClient_SendUpdateNoopsWhenNotConnected(t *testing.T) {
	c := &Client{}
	c.SendUpdate("anything") // must not panic with nil sockets
}
