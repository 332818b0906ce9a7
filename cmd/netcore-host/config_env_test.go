package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := &appConfig{
		listenAddr:    ":12345",
		gameID:        "default",
		logFormat:     "text",
		logLevel:      "info",
		maxClients:    0,
		handshakeTO:   3 * time.Second,
		clientReadTO:  60 * time.Second,
		discoveryMode: "lan",
	}

	os.Setenv("NETCORE_HOST_GAME_ID", "spaceship")
	os.Setenv("NETCORE_HOST_DISCOVERY", "mdns")
	os.Setenv("NETCORE_HOST_MAX_CLIENTS", "8")
	os.Setenv("NETCORE_HOST_HANDSHAKE_TIMEOUT", "500ms")
	t.Cleanup(func() {
		os.Unsetenv("NETCORE_HOST_GAME_ID")
		os.Unsetenv("NETCORE_HOST_DISCOVERY")
		os.Unsetenv("NETCORE_HOST_MAX_CLIENTS")
		os.Unsetenv("NETCORE_HOST_HANDSHAKE_TIMEOUT")
	})

	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.gameID != "spaceship" {
		t.Fatalf("expected gameID override, got %q", base.gameID)
	}
	if base.discoveryMode != "mdns" {
		t.Fatalf("expected discoveryMode override, got %q", base.discoveryMode)
	}
	if base.maxClients != 8 {
		t.Fatalf("expected maxClients override, got %d", base.maxClients)
	}
	if base.handshakeTO != 500*time.Millisecond {
		t.Fatalf("expected handshakeTO override, got %v", base.handshakeTO)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{gameID: "explicit"}
	os.Setenv("NETCORE_HOST_GAME_ID", "from-env")
	t.Cleanup(func() { os.Unsetenv("NETCORE_HOST_GAME_ID") })

	if err := applyEnvOverrides(base, map[string]struct{}{"game-id": {}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.gameID != "explicit" {
		t.Fatalf("expected explicit flag to win over env, got %q", base.gameID)
	}
}

func TestApplyEnvOverrides_InvalidDurationReportsError(t *testing.T) {
	base := &appConfig{handshakeTO: time.Second}
	os.Setenv("NETCORE_HOST_HANDSHAKE_TIMEOUT", "not-a-duration")
	t.Cleanup(func() { os.Unsetenv("NETCORE_HOST_HANDSHAKE_TIMEOUT") })

	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
