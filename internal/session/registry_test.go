package session

import (
	"net"
	"testing"
)

type fakeConn struct{ closed bool }

func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestRegistry_AddRemoveIsAtomicAcrossMaps(t *testing.T) {
	r := New()
	conn := &fakeConn{}
	id := NewClientID()
	r.AddSession(&Session{ID: id, Conn: conn})

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	r.RecordFastUpdate(id, addr, "payload")

	state, addrs := r.Snapshot()
	if _, ok := state[id]; !ok {
		t.Fatalf("expected state to contain id")
	}
	if _, ok := addrs[id]; !ok {
		t.Fatalf("expected fast addr to contain id")
	}

	r.RemoveSession(id)
	state, addrs = r.Snapshot()
	if _, ok := state[id]; ok {
		t.Fatalf("expected state entry removed")
	}
	if _, ok := addrs[id]; ok {
		t.Fatalf("expected fast addr entry removed")
	}
	if r.Count() != 0 {
		t.Fatalf("expected zero sessions, got %d", r.Count())
	}
	if !conn.closed {
		t.Fatalf("expected connection closed on removal")
	}
}

func TestRegistry_FastEndpointNeverChanges(t *testing.T) {
	r := New()
	id := NewClientID()
	first := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1111}
	second := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2222}

	r.RecordFastUpdate(id, first, "a")
	r.RecordFastUpdate(id, second, "b")

	_, addrs := r.Snapshot()
	if addrs[id].String() != first.String() {
		t.Fatalf("expected fast endpoint to stay at %v, got %v", first, addrs[id])
	}
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	r := New()
	r.RemoveSession(NewClientID()) // must not panic
}

func TestClientID_Unique(t *testing.T) {
	seen := make(map[ClientID]struct{})
	for i := 0; i < 1000; i++ {
		id := NewClientID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ClientID generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}
