package discovery

import (
	"testing"
	"time"
)

func TestLANService_AdvertiseAndFindRoundTrip(t *testing.T) {
	adv := NewLAN()
	if err := adv.StartAdvertising("T", 12345); err != nil {
		t.Fatalf("start advertising: %v", err)
	}
	defer adv.StopAdvertising()

	scanner := NewLAN()
	hosts, err := scanner.Find("T", 3*time.Second)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(hosts) == 0 {
		t.Fatalf("expected at least one advertised host")
	}
	found := false
	for _, h := range hosts {
		if h.ReliablePort == 12345 && h.GameID == "T" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a host with reliable_port=12345 game_id=T, got %#v", hosts)
	}
}

func TestLANService_FindFiltersByGameID(t *testing.T) {
	adv := NewLAN()
	if err := adv.StartAdvertising("OTHER", 9999); err != nil {
		t.Fatalf("start advertising: %v", err)
	}
	defer adv.StopAdvertising()

	scanner := NewLAN()
	hosts, err := scanner.Find("DIFFERENT", 2*time.Second)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for _, h := range hosts {
		if h.ReliablePort == 9999 {
			t.Fatalf("expected OTHER's advertisement to be filtered out, got %#v", h)
		}
	}
}

func TestLANService_StopAdvertisingIsIdempotent(t *testing.T) {
	s := NewLAN()
	s.StopAdvertising() // never started; must not panic
	if err := s.StartAdvertising("T", 1234); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.StopAdvertising()
	s.StopAdvertising() // already stopped; must not panic
}
