package domain

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"

	dErrors "custos/pkg/domain-errors"
)

// KeyLen is the byte width of an attribute key and of record notes.
const KeyLen = 32

// AttributeKey names a fact type about a subject. The key space is open
// ended: short ASCII labels occupy the leading bytes and are zero padded,
// while derived capability keys use the full width.
type AttributeKey [KeyLen]byte

// Notes is the caller-supplied opaque annotation stored with a record.
type Notes [KeyLen]byte

// ZeroNotes is the annotation stored by value-only writes.
var ZeroNotes Notes

// Well-known attribute keys consulted by the authorization engine.
var (
	KeyIsBlacklisted        = KeyFromLabel("isBlacklisted")
	KeyIsRegisteredContract = KeyFromLabel("isRegisteredContract")
	KeyIsDepositAddress     = KeyFromLabel("isDepositAddress")
	KeyHasPassedKYCAML      = KeyFromLabel("hasPassedKYC/AML")
	KeyCanBurn              = KeyFromLabel("canBurn")
)

// KeyFromLabel builds a key from a short ASCII label, zero padded on the
// right. Labels longer than 32 bytes are truncated; callers needing the
// full width should supply hex via ParseKey.
func KeyFromLabel(label string) AttributeKey {
	var k AttributeKey
	copy(k[:], label)
	return k
}

// ParseKey accepts either a 0x-prefixed 64-hex-digit key or a plain label.
func ParseKey(s string) (AttributeKey, error) {
	var k AttributeKey
	raw, cut := strings.CutPrefix(s, "0x")
	if cut {
		if len(raw) != KeyLen*2 {
			return k, dErrors.New(dErrors.CodeValidation, "hex attribute key must be 32 bytes")
		}
		if _, err := hex.Decode(k[:], []byte(raw)); err != nil {
			return k, dErrors.New(dErrors.CodeValidation, "attribute key is not valid hex")
		}
		return k, nil
	}
	if s == "" {
		return k, dErrors.New(dErrors.CodeValidation, "attribute key is required")
	}
	if len(s) > KeyLen {
		return k, dErrors.New(dErrors.CodeValidation, "attribute key label exceeds 32 bytes")
	}
	copy(k[:], s)
	return k, nil
}

// String renders a label key as its trimmed label and any other key as
// 0x-prefixed hex.
func (k AttributeKey) String() string {
	trimmed := bytes.TrimRight(k[:], "\x00")
	if len(trimmed) > 0 && isPrintableASCII(trimmed) && !hasHexPrefix(trimmed) {
		return string(trimmed)
	}
	return "0x" + hex.EncodeToString(k[:])
}

// MarshalText implements encoding.TextMarshaler for JSON transport.
func (k AttributeKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON transport.
func (k *AttributeKey) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseNotes accepts a 0x-prefixed 64-hex-digit annotation or a plain
// string of at most 32 bytes. Empty input yields ZeroNotes.
func ParseNotes(s string) (Notes, error) {
	var n Notes
	if s == "" {
		return n, nil
	}
	if raw, cut := strings.CutPrefix(s, "0x"); cut {
		if len(raw) != KeyLen*2 {
			return n, dErrors.New(dErrors.CodeValidation, "hex notes must be 32 bytes")
		}
		if _, err := hex.Decode(n[:], []byte(raw)); err != nil {
			return n, dErrors.New(dErrors.CodeValidation, "notes are not valid hex")
		}
		return n, nil
	}
	if len(s) > KeyLen {
		return n, dErrors.New(dErrors.CodeValidation, "notes exceed 32 bytes")
	}
	copy(n[:], s)
	return n, nil
}

// String renders notes as 0x-prefixed hex.
func (n Notes) String() string {
	return "0x" + hex.EncodeToString(n[:])
}

// MarshalText implements encoding.TextMarshaler for JSON transport.
func (n Notes) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON transport.
func (n *Notes) UnmarshalText(text []byte) error {
	parsed, err := ParseNotes(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// MaxValueBits bounds attribute values to 256-bit unsigned integers.
const MaxValueBits = 256

// ValidateValue rejects nil, negative, or wider-than-256-bit values.
func ValidateValue(v *big.Int) error {
	if v == nil {
		return dErrors.New(dErrors.CodeValidation, "attribute value is required")
	}
	if v.Sign() < 0 {
		return dErrors.New(dErrors.CodeValidation, "attribute value must be unsigned")
	}
	if v.BitLen() > MaxValueBits {
		return dErrors.New(dErrors.CodeValidation, "attribute value exceeds 256 bits")
	}
	return nil
}

// hasHexPrefix guards the label render path: a label starting with "0x"
// would be re-parsed as hex and lose its value.
func hasHexPrefix(b []byte) bool {
	return len(b) >= 2 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X')
}

func isPrintableASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
