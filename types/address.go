// Package types defines the primitive data types shared across the
// ledger: addresses, transaction hashes, and the tagged Amount variant.
package types

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// AddressSize is the byte length of an Address.
const AddressSize = 32

// Address is an opaque 32-byte account identifier. Equality is byte
// equality. The all-zero address is reserved for genesis sources and
// must never be assigned to a real account.
type Address [AddressSize]byte

// ZeroAddress is the reserved genesis source address.
var ZeroAddress = Address{}

// IsZero reports whether a is the reserved zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the lowercase hex encoding of a, with no prefix.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address's underlying bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// AddressFromHex decodes a hex string (no "0x" prefix required) into an
// Address. Returns an error if the decoded length is not AddressSize.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return a, fmt.Errorf("types: invalid address hex: %w", err)
	}
	if len(b) != AddressSize {
		return a, fmt.Errorf("types: invalid address length: got %d want %d", len(b), AddressSize)
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromPublicKeyHash derives an Address by truncating the
// SHA3-256 hash of the SEC1-encoded public key to AddressSize bytes.
// This is the implementation-defined public-key-to-address binding
// spec.md's Transaction invariant requires.
func AddressFromPublicKeyHash(pubKeyBytes []byte) Address {
	var a Address
	h := sha3.Sum256(pubKeyBytes)
	copy(a[:], h[:AddressSize])
	return a
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
