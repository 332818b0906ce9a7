package session

import (
	"crypto/rand"
	"fmt"
)

// ClientID is a server-minted, 128-bit random session identifier, rendered
// in canonical UUID form. Immutable for the lifetime of a session.
type ClientID string

// NewClientID mints a fresh, cryptographically random ClientID. Collisions
// within one process lifetime are astronomically unlikely (122 bits of
// entropy after the UUID version/variant bits are fixed).
func NewClientID() ClientID {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is fatal to the process's ability to mint
		// unique identities; panicking surfaces this loudly rather than
		// silently handing out colliding ids.
		panic(fmt.Sprintf("session: crypto/rand unavailable: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10

	return ClientID(fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]))
}
