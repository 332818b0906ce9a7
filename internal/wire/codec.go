// Package wire implements the two on-the-wire shapes used by the session
// framework: length-prefixed frames on the reliable stream, and one
// self-describing object per datagram on the unreliable channel.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameSize bounds a single reliable-stream frame. Frames whose declared
// length exceeds this are a fatal framing error.
const MaxFrameSize = 4 << 20 // 4 MiB

// UDPBufferSize is the receive buffer size for the unreliable channel, and
// the sender-side ceiling: a payload that would not fit is rejected before
// it is ever handed to the socket.
const UDPBufferSize = 4096

// Sentinel errors classifying reliable-channel failures (spec §7).
var (
	ErrClosed        = errors.New("wire: stream closed")
	ErrFraming       = errors.New("wire: framing error")
	ErrFrameTooLarge = fmt.Errorf("wire: frame exceeds %d bytes: %w", MaxFrameSize, ErrFraming)
	ErrDecode        = errors.New("wire: payload did not decode")
	ErrDatagramTooLarge = errors.New("wire: datagram exceeds UDPBufferSize")
)

// WriteFrame writes a single length-prefixed frame: 4-byte big-endian
// length followed by payload bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame, looping until the header and
// body are read in full. A clean 0-byte read at a frame boundary returns
// ErrClosed; a partial read at any other point returns ErrFraming.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w: reading header: %v", ErrFraming, err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if n == 0 {
		return nil, nil
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFraming, err)
	}
	return body, nil
}

// EncodePayload marshals any application value (nested maps, slices,
// scalars) into the shared self-describing wire format.
func EncodePayload(v interface{}) ([]byte, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	return b, nil
}

// DecodePayload unmarshals a datagram or frame body produced by
// EncodePayload. Decode failures are reported via ErrDecode and must not
// tear down the channel the caller read them from.
func DecodePayload(data []byte, out interface{}) error {
	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// CheckDatagramSize validates a datagram payload against UDPBufferSize
// before a sender hands it to the socket.
func CheckDatagramSize(payload []byte) error {
	if len(payload) > UDPBufferSize {
		return ErrDatagramTooLarge
	}
	return nil
}
