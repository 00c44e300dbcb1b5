// Package domain defines the core value types shared across custos: ledger
// addresses, attribute keys, and record annotations. Types here are plain
// fixed-width byte arrays so they can be used as map keys without boxing.
package domain

import (
	"encoding/hex"
	"math/big"
	"strings"

	dErrors "custos/pkg/domain-errors"
)

// AddressLen is the byte width of a ledger account address.
const AddressLen = 20

// Address identifies a ledger account. The zero value is the canonical
// "no address" and is never a valid subject or caller.
type Address [AddressLen]byte

// ZeroAddress is the absent-address marker stored in empty records.
var ZeroAddress Address

// ParseAddress decodes a 0x-prefixed, 40-hex-digit account address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, ok := strings.CutPrefix(s, "0x")
	if !ok {
		raw, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return a, dErrors.New(dErrors.CodeValidation, "address must be 0x-prefixed")
	}
	if len(raw) != AddressLen*2 {
		return a, dErrors.New(dErrors.CodeValidation, "address must be 20 bytes of hex")
	}
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return a, dErrors.New(dErrors.CodeValidation, "address is not valid hex")
	}
	return a, nil
}

// String renders the address as lowercase 0x-prefixed hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler for JSON transport.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON transport.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value returns the address embedded in a 256-bit attribute value. Role
// attributes store account references this way (low 160 bits).
func (a Address) Value() *big.Int {
	return new(big.Int).SetBytes(a[:])
}

// AddressFromValue extracts the account reference carried in the low 160
// bits of a role attribute value. Returns the zero address for nil.
func AddressFromValue(v *big.Int) Address {
	var a Address
	if v == nil {
		return a
	}
	b := new(big.Int).And(v, addressMask).Bytes()
	copy(a[AddressLen-len(b):], b)
	return a
}

var addressMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), AddressLen*8), big.NewInt(1))
