package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyFileOverrides_LowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netcore.yaml")
	contents := "game_id: from-file\ndiscovery: mdns\nmax_clients: 4\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	c := &appConfig{configFile: path, gameID: "default", discoveryMode: "lan", maxClients: 0}
	if err := applyFileOverrides(c, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.gameID != "from-file" {
		t.Fatalf("expected game_id from file, got %q", c.gameID)
	}
	if c.discoveryMode != "mdns" {
		t.Fatalf("expected discovery from file, got %q", c.discoveryMode)
	}
	if c.maxClients != 4 {
		t.Fatalf("expected max_clients from file, got %d", c.maxClients)
	}
}

func TestApplyFileOverrides_FlagWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netcore.yaml")
	if err := os.WriteFile(path, []byte("game_id: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	c := &appConfig{configFile: path, gameID: "explicit"}
	if err := applyFileOverrides(c, map[string]struct{}{"game-id": {}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.gameID != "explicit" {
		t.Fatalf("expected explicit flag to win over file, got %q", c.gameID)
	}
}
