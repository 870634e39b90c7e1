// Package tapcrypto holds the small fixed-width value types the TAP engine
// hashes and signs: addresses, 32-byte hashes, and checked 128-bit integers.
package tapcrypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte EVM address. It is a thin alias over go-ethereum's
// common.Address so the rest of the engine can use go-ethereum's hex
// parsing and checksumming without re-implementing it.
type Address = common.Address

// Hash32 is a 32-byte value: a keccak256 digest, a collection ID, or an
// EIP-712 type hash.
type Hash32 [32]byte

// Bytes returns the digest as a byte slice.
func (h Hash32) Bytes() []byte { return h[:] }

// Hex returns the lowercase "0x"-prefixed hex encoding.
func (h Hash32) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash32) String() string { return h.Hex() }

// MarshalJSON encodes as a "0x"-prefixed hex string.
func (h Hash32) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.Hex() + `"`), nil
}

// UnmarshalJSON decodes a "0x"-prefixed (or bare) hex string.
func (h *Hash32) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnquote(data, &s); err != nil {
		return err
	}
	v, err := ParseHash32(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func jsonUnquote(data []byte, s *string) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("expected JSON string, got %q", data)
	}
	*s = string(data[1 : len(data)-1])
	return nil
}

// ParseHash32 parses a "0x"-optional hex string into a Hash32. It returns an
// error (not a panic) so callers parsing untrusted wire input can surface a
// SchemaError instead of crashing the process.
func ParseHash32(s string) (Hash32, error) {
	var h Hash32
	b, err := decodeHex(s, 32)
	if err != nil {
		return h, fmt.Errorf("parse hash32: %w", err)
	}
	copy(h[:], b)
	return h, nil
}

func decodeHex(s string, wantLen int) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != wantLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", wantLen, len(b))
	}
	return b, nil
}
