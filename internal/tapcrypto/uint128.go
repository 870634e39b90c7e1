package tapcrypto

import (
	"encoding/json"
	"errors"
	"math/big"
	"math/bits"
)

// ErrOverflow128 is returned by Uint128.CheckedAdd when the sum would not
// fit in 128 bits.
var ErrOverflow128 = errors.New("uint128: addition overflows 128 bits")

// Uint128 is an unsigned 128-bit integer stored as two uint64 limbs. spec.md
// requires checked arithmetic over "value"/"value_aggregate": using two
// machine words and math/bits.Add64 gives exact, allocation-free overflow
// detection without pulling in a 256-bit library that would need its own
// 128-bit overflow policy bolted on (see DESIGN.md).
type Uint128 struct {
	Hi, Lo uint64
}

// Uint128FromUint64 widens a uint64 into a Uint128.
func Uint128FromUint64(v uint64) Uint128 { return Uint128{Lo: v} }

// CheckedAdd returns a+b, or ErrOverflow128 if the sum does not fit in 128 bits.
func (a Uint128) CheckedAdd(b Uint128) (Uint128, error) {
	lo, carryLo := bits.Add64(a.Lo, b.Lo, 0)
	hi, carryHi := bits.Add64(a.Hi, b.Hi, carryLo)
	if carryHi != 0 {
		return Uint128{}, ErrOverflow128
	}
	return Uint128{Hi: hi, Lo: lo}, nil
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Uint128) Cmp(b Uint128) int {
	if a.Hi != b.Hi {
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	}
	switch {
	case a.Lo < b.Lo:
		return -1
	case a.Lo > b.Lo:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether a is the zero value.
func (a Uint128) IsZero() bool { return a.Hi == 0 && a.Lo == 0 }

// Max128 returns the larger of a and b.
func Max128(a, b Uint128) Uint128 {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// ToBig returns the value as a *big.Int.
func (a Uint128) ToBig() *big.Int {
	z := new(big.Int).SetUint64(a.Hi)
	z.Lsh(z, 64)
	z.Or(z, new(big.Int).SetUint64(a.Lo))
	return z
}

// FillBytes32 zero-extends the value into a left-padded 32-byte slot, the
// ABI/EIP-712 encoding for a u256-typed field carrying a u128 value.
func (a Uint128) FillBytes32() [32]byte {
	var out [32]byte
	a.ToBig().FillBytes(out[:])
	return out
}

// Uint128FromBig converts a non-negative *big.Int that fits in 128 bits.
// Returns an error (SchemaError territory) if it is negative or too large.
func Uint128FromBig(v *big.Int) (Uint128, error) {
	if v.Sign() < 0 {
		return Uint128{}, errors.New("uint128: negative value")
	}
	if v.BitLen() > 128 {
		return Uint128{}, errors.New("uint128: value exceeds 128 bits")
	}
	var buf [16]byte
	v.FillBytes(buf[:])
	return Uint128{
		Hi: beUint64(buf[0:8]),
		Lo: beUint64(buf[8:16]),
	}, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func (a Uint128) String() string { return a.ToBig().String() }

// MarshalJSON encodes as a decimal string, matching spec.md's "u128 decimal
// or integer" wire schema (decimal string is the unambiguous choice since a
// JSON number cannot hold 128 bits of precision).
func (a Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToBig().String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number, per spec.md's
// "u128 decimal or integer" wire schema.
func (a *Uint128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Fall back to a bare JSON number.
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return err
		}
		s = n.String()
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.New("uint128: invalid decimal value")
	}
	u, err := Uint128FromBig(v)
	if err != nil {
		return err
	}
	*a = u
	return nil
}
