package scene

import "testing"

func TestNetworkScene_DisconnectedSkipsFrame(t *testing.T) {
	fired := 0
	s := New(nil, Hooks{
		OnServerDisconnect: func() { fired++ },
		GetLocalState:      func() interface{} { t.Fatalf("should not be called while disconnected"); return nil },
	})
	s.Process()
	s.Process()
	if fired != 1 {
		t.Fatalf("expected OnServerDisconnect to fire exactly once, got %d", fired)
	}
}

func TestNetworkScene_NilHooksAreSafe(t *testing.T) {
	s := New(nil, Hooks{})
	s.Process() // must not panic
}
