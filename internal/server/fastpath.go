package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/playforge/netcore/internal/metrics"
	"github.com/playforge/netcore/internal/session"
	"github.com/playforge/netcore/internal/wire"
)

// fastReceiveLoop owns the unreliable socket: every well-formed datagram
// learns the sender's fast-path endpoint (on first sight only) and
// overwrites game_state[client_id], then schedules a broadcast. Packets
// whose client_id never handshook are accepted — this is the registration
// mechanism (spec §4.C).
func (s *Server) fastReceiveLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, wire.UDPBufferSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, addr, err := s.fastConn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			wrap := fmt.Errorf("%w: %v", ErrFastRead, err)
			metrics.IncError(mapErrToMetric(wrap))
			s.setError(wrap)
			continue
		}

		var msg wire.FastUpdate
		if err := wire.DecodePayload(buf[:n], &msg); err != nil {
			metrics.IncFastMalformed()
			continue
		}
		metrics.IncFastRx()
		s.registry.RecordFastUpdate(session.ClientID(msg.ClientID), addr, msg.Payload)
		s.dispatcher.Publish(struct{}{})
	}
}

// broadcastNow snapshots game_state under the registry mutex, serializes
// it once, and fans it out to every known fast-path endpoint. Per-recipient
// send errors are logged and do not abort the broadcast to the others, and
// there is no ordering guarantee between recipients or successive
// snapshots (spec §4.C).
func (s *Server) broadcastNow() {
	state, addrs := s.registry.Snapshot()
	if len(addrs) == 0 {
		return
	}
	out := make(map[string]interface{}, len(state))
	for id, payload := range state {
		out[string(id)] = payload
	}
	payload, err := wire.EncodePayload(out)
	if err != nil {
		s.logger.Error("broadcast_encode_error", "error", err)
		return
	}
	if err := wire.CheckDatagramSize(payload); err != nil {
		s.logger.Error("broadcast_oversize", "error", err, "size", len(payload))
		return
	}

	sent := 0
	for id, addr := range addrs {
		if _, err := s.fastConn.WriteTo(payload, addr); err != nil {
			metrics.IncBroadcastSendError()
			s.logger.Debug("broadcast_send_error", "client_id", string(id), "addr", addr.String(), "error", err)
			continue
		}
		sent++
	}
	metrics.IncBroadcast(sent)
}
