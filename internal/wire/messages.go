package wire

// DefaultTCPPort is the reliable-channel port a host listens on unless
// configured otherwise.
const DefaultTCPPort = 12345

// Handshake is the first reliable frame sent by a connecting client.
type Handshake struct {
	GameID string `cbor:"game_id"`
}

// IDAssignment is the reliable response to a successful Handshake.
type IDAssignment struct {
	Type     string `cbor:"type"`
	ID       string `cbor:"id"`
	FastPort uint16 `cbor:"fast_port"`
}

// NewIDAssignment builds the canonical id_assignment response.
func NewIDAssignment(id string, fastPort uint16) IDAssignment {
	return IDAssignment{Type: "id_assignment", ID: id, FastPort: fastPort}
}

// FastUpdate is the client->server unreliable datagram shape: the sender's
// claimed ClientId plus its opaque per-frame payload.
type FastUpdate struct {
	ClientID string      `cbor:"client_id"`
	Payload  interface{} `cbor:"payload"`
}

// Advertisement is the LAN discovery broadcast payload (spec §6: field
// names are part of the wire contract).
type Advertisement struct {
	GameID   string `cbor:"game_id"`
	HostName string `cbor:"host_name"`
	TCPPort  uint16 `cbor:"tcp_port"`
}
