// Package ring implements Chord ring identifier arithmetic: a fixed-width
// modular space, SHA-1 based hashing into it, and the cyclic interval
// predicates the overlay's routing and ownership rules are built on.
package ring

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidID reports an identifier that does not belong to a Space.
var ErrInvalidID = errors.New("ring: invalid id")

// Space defines a Chord identifier space: the integers in [0, 2^Bits)
// arranged on a ring, and the parameters derived from it.
//
// Bits is the ring's size in bits (commonly 160 for SHA-1, smaller for
// tests). ByteLen is ceil(Bits/8), the number of bytes an ID occupies.
type Space struct {
	Bits    int
	ByteLen int
}

// NewSpace builds a Space of the given bit width.
func NewSpace(bits int) (Space, error) {
	if bits <= 0 {
		return Space{}, fmt.Errorf("ring: invalid bit width %d (must be > 0)", bits)
	}
	return Space{Bits: bits, ByteLen: (bits + 7) / 8}, nil
}

// ID is a ring identifier, stored big-endian, always ByteLen bytes long.
type ID []byte

// Zero returns the additive identity of the space.
func (sp Space) Zero() ID {
	return make(ID, sp.ByteLen)
}

func (sp Space) mask(id ID) {
	extraBits := sp.ByteLen*8 - sp.Bits
	if extraBits > 0 {
		id[0] &= byte(0xFF >> extraBits)
	}
}

// HashString derives an identifier from s by truncating its SHA-1 digest
// to the space's bit width. This is the hash function contract every
// node id and resource key in the overlay is produced through.
func (sp Space) HashString(s string) ID {
	h := sha1.Sum([]byte(s))
	buf := make(ID, sp.ByteLen)
	copy(buf, h[:])
	sp.mask(buf)
	return buf
}

// RandomID builds an identifier from caller-supplied entropy: its first
// ByteLen bytes, masked to the space's bit width. The result is uniformly
// random when the entropy is.
func (sp Space) RandomID(entropy [20]byte) ID {
	buf := make(ID, sp.ByteLen)
	copy(buf, entropy[:])
	sp.mask(buf)
	return buf
}

// IsValid reports whether id has the right length and, for non-byte-aligned
// spaces, no stray bits set above Bits.
func (sp Space) IsValid(id ID) error {
	if len(id) != sp.ByteLen {
		return ErrInvalidID
	}
	extraBits := sp.ByteLen*8 - sp.Bits
	if extraBits > 0 {
		topMask := byte(0xFF << (8 - extraBits))
		if id[0]&topMask != 0 {
			return ErrInvalidID
		}
	}
	return nil
}

// FromHex parses a hexadecimal string into an ID valid for sp.
func (sp Space) FromHex(s string) (ID, error) {
	str := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if str == "" {
		return nil, fmt.Errorf("ring: empty hex string")
	}
	raw, err := hex.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("ring: invalid hex string %q: %w", s, err)
	}
	if len(raw) > sp.ByteLen {
		leading := raw[:len(raw)-sp.ByteLen]
		for _, b := range leading {
			if b != 0 {
				return nil, fmt.Errorf("ring: value exceeds %d-bit space", sp.Bits)
			}
		}
		raw = raw[len(raw)-sp.ByteLen:]
	}
	id := make(ID, sp.ByteLen)
	copy(id[sp.ByteLen-len(raw):], raw)
	if err := sp.IsValid(id); err != nil {
		return nil, fmt.Errorf("ring: value exceeds %d-bit space", sp.Bits)
	}
	return id, nil
}

// FromBigInt reduces x modulo 2^Bits and encodes it as an ID.
func (sp Space) FromBigInt(x *big.Int) ID {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(sp.Bits))
	r := new(big.Int).Mod(x, mod)
	buf := r.Bytes()
	id := make(ID, sp.ByteLen)
	copy(id[sp.ByteLen-len(buf):], buf)
	return id
}

// Hex returns the identifier as a lowercase hex string ("<nil>" if x is nil).
func (x ID) Hex() string {
	if x == nil {
		return "<nil>"
	}
	return hex.EncodeToString(x)
}

// Decimal returns the identifier's base-10 representation, used by
// DebugString's short-id convention.
func (x ID) Decimal() string {
	if x == nil {
		return "<nil>"
	}
	return x.BigInt().String()
}

// Short returns the first n characters of the decimal representation,
// the truncated form used in debug/log output.
func (x ID) Short(n int) string {
	d := x.Decimal()
	if len(d) <= n {
		return d
	}
	return d[:n]
}

// BigInt interprets the identifier as a big-endian unsigned integer.
func (x ID) BigInt() *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).SetBytes(x)
}

// Cmp compares two identifiers as unsigned integers: -1, 0 or 1.
func (x ID) Cmp(y ID) int {
	return x.BigInt().Cmp(y.BigInt())
}

// Equal reports whether x and y denote the same identifier.
func (x ID) Equal(y ID) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	return x.Cmp(y) == 0
}

// AddMod returns (x + y) mod 2^Bits.
func (sp Space) AddMod(x, y ID) ID {
	sum := new(big.Int).Add(x.BigInt(), y.BigInt())
	return sp.FromBigInt(sum)
}

// Distance returns the clockwise distance from x to y on the ring, i.e.
// (y - x) mod 2^Bits. It is always in [0, 2^Bits).
func (sp Space) Distance(x, y ID) *big.Int {
	diff := new(big.Int).Sub(y.BigInt(), x.BigInt())
	mod := new(big.Int).Lsh(big.NewInt(1), uint(sp.Bits))
	return diff.Mod(diff, mod)
}

// FingerStart returns (id + 2^i) mod 2^Bits, the start of the i-th finger
// interval as defined by the Chord paper.
func (sp Space) FingerStart(id ID, i int) ID {
	offset := new(big.Int).Lsh(big.NewInt(1), uint(i))
	sum := new(big.Int).Add(id.BigInt(), offset)
	return sp.FromBigInt(sum)
}

// Within reports whether x lies in the circular interval bounded by start
// and end, with inclusion of each endpoint controlled independently. It
// takes no Space receiver because the predicate is purely a comparison of
// the three identifiers involved.
//
// The degenerate case start == end is treated as the entire ring when at
// least one endpoint is excluded (an empty point interval would otherwise
// make every lookup impossible); when both endpoints are included the
// interval collapses to the single point start == end.
func (x ID) Within(start, end ID, includeStart, includeEnd bool) bool {
	if start.Equal(end) {
		if includeStart && includeEnd {
			return x.Equal(start)
		}
		return true
	}

	afterStart := start.Cmp(x) < 0 || (includeStart && start.Equal(x))
	beforeEnd := x.Cmp(end) < 0 || (includeEnd && x.Equal(end))

	if start.Cmp(end) < 0 {
		return afterStart && beforeEnd
	}
	// wrap-around: start > end
	return afterStart || beforeEnd
}

// Between is the common Chord convenience case: x in (start, end].
func (x ID) Between(start, end ID) bool {
	return x.Within(start, end, false, true)
}
