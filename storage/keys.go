package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Key builds the canonical storage key hex(address) + ":" + decimal(height)
// spec.md §4.3 mandates.
func Key(addressHex string, height uint64) []byte {
	return []byte(addressHex + ":" + strconv.FormatUint(height, 10))
}

// Prefix builds the address-prefix used for cursor iteration over one
// account's self-chain.
func Prefix(addressHex string) []byte {
	return []byte(addressHex + ":")
}

// ParseKey splits a stored key back into its address-hex and height
// components.
func ParseKey(key []byte) (addressHex string, height uint64, err error) {
	s := string(key)
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return "", 0, fmt.Errorf("storage: malformed key %q", s)
	}
	addressHex = s[:idx]
	height, err = strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("storage: malformed key %q: %w", s, err)
	}
	return addressHex, height, nil
}
