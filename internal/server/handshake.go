package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/playforge/netcore/internal/session"
	"github.com/playforge/netcore/internal/wire"
)

// handshake runs the required reliable hello exchange: read one framed
// Handshake, reject on game_id mismatch or framing failure without
// assigning an id, otherwise mint a ClientID and reply with IDAssignment.
func (s *Server) handshake(ctx context.Context, conn net.Conn) (session.ClientID, error) {
	_ = conn.SetDeadline(time.Now().Add(s.handshakeTime))
	defer conn.SetDeadline(time.Time{})

	body, err := wire.ReadFrame(conn)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	var hello wire.Handshake
	if err := wire.DecodePayload(body, &hello); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if hello.GameID != s.gameID {
		return "", fmt.Errorf("%w: game_id mismatch: got %q want %q", ErrHandshake, hello.GameID, s.gameID)
	}

	id := session.NewClientID()
	reply := wire.NewIDAssignment(string(id), s.FastPort())
	payload, err := wire.EncodePayload(reply)
	if err != nil {
		return "", fmt.Errorf("%w: encode id_assignment: %v", ErrHandshake, err)
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return "", fmt.Errorf("%w: server shutting down", ErrHandshake)
	}
	return id, nil
}
