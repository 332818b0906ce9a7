package client

import "errors"

// Sentinel errors classifying connection-establishment failures.
var (
	ErrDialTimeout   = errors.New("dial timeout")
	ErrHandshake     = errors.New("handshake")
	ErrNotConnected  = errors.New("not connected")
	ErrUnexpectedMsg = errors.New("unexpected reliable message")
)
