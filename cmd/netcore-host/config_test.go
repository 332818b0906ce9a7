package main

import "testing"

func TestValidate_RejectsBadLogFormat(t *testing.T) {
	c := &appConfig{logFormat: "xml", logLevel: "info", discoveryMode: "lan", gameID: "g", handshakeTO: 1, clientReadTO: 1}
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for invalid log-format")
	}
}

func TestValidate_RejectsBadDiscoveryMode(t *testing.T) {
	c := &appConfig{logFormat: "text", logLevel: "info", discoveryMode: "bluetooth", gameID: "g", handshakeTO: 1, clientReadTO: 1}
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for invalid discovery mode")
	}
}

func TestValidate_RejectsEmptyGameID(t *testing.T) {
	c := &appConfig{logFormat: "text", logLevel: "info", discoveryMode: "lan", gameID: "", handshakeTO: 1, clientReadTO: 1}
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for empty game-id")
	}
}

func TestValidate_RejectsNegativeMaxClients(t *testing.T) {
	c := &appConfig{logFormat: "text", logLevel: "info", discoveryMode: "lan", gameID: "g", handshakeTO: 1, clientReadTO: 1, maxClients: -1}
	if err := c.validate(); err == nil {
		t.Fatalf("expected error for negative max-clients")
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	c := &appConfig{
		logFormat:     "text",
		logLevel:      "info",
		discoveryMode: "lan",
		gameID:        "default",
		handshakeTO:   3_000_000_000,
		clientReadTO:  60_000_000_000,
	}
	if err := c.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
