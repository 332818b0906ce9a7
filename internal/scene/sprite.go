package scene

// NetSprite is a thin carrier for one networked entity's visible state. It
// is a convenience for get_local_state/handle_network_state
// implementations, never required by the transport: Payload stays opaque
// to the framework either way.
type NetSprite struct {
	NetID    string  `cbor:"net_id"`
	SpriteID string  `cbor:"sprite_id"`
	X        float64 `cbor:"x"`
	Y        float64 `cbor:"y"`
	Angle    float64 `cbor:"angle"`
	Visible  bool    `cbor:"visible"`
}
