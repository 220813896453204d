package model

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// HashSize is the length in bytes of a speedupdate content hash.
const HashSize = sha256.Size

// Hash is a SHA-256 digest, the sole checksum the core design uses for
// package data and per-file integrity. Kept as a fixed byte array so it
// serializes compactly and compares with ==, the way PackageMetadata.Hash
// and Operation.FinalHash are compared throughout the executor.
type Hash [HashSize]byte

// ZeroHash is the all-zero Hash value, marking a hash that was never set
// (it is not the SHA-256 of the empty byte stream).
var ZeroHash = Hash{}

// ParseHash decodes a hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, NewError(KindSchemaError, "invalid hash %q", s).WithCause(err)
	}
	if len(b) != HashSize {
		return h, NewError(KindSchemaError, "invalid hash %q: want %d bytes, got %d", s, HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash (no content hashed yet).
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalJSON renders the hash as a hex string, matching the
// "hash: bytes32, hex in metadata" wire format from the core design.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON parses the hex string form back into a Hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return NewError(KindSchemaError, "invalid hash literal %q", string(data))
	}
	parsed, err := ParseHash(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Hasher is a running SHA-256 computation, used by the builder while
// assembling package data and by the executor while applying operations.
// Write to it as bytes arrive, call Sum when the stream is complete.
type Hasher struct {
	h hash.Hash
}

// NewHasher creates a Hasher ready to accept Write calls.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write feeds more bytes into the running hash.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the Hash of everything written so far, without resetting it.
func (h *Hasher) Sum() Hash {
	var out Hash
	copy(out[:], h.h.Sum(nil))
	return out
}

// HashBytes is a convenience for one-shot hashing of an in-memory buffer.
func HashBytes(data []byte) Hash {
	h := NewHasher()
	_, _ = h.Write(data)
	return h.Sum()
}
