package types

import (
	"encoding/hex"
	"fmt"
)

// TransactionHashSize is the byte length of a TransactionHash.
const TransactionHashSize = 32

// TransactionHash is a 32-byte SHA-256 digest over a transaction's
// canonical fields. It is always derived, never stored as an
// independent field, and is recomputable from the transaction alone.
type TransactionHash [TransactionHashSize]byte

// ZeroTransactionHash is the sentinel previous-transaction-id for
// genesis records.
var ZeroTransactionHash = TransactionHash{}

// String returns the lowercase hex encoding of h, with no prefix.
func (h TransactionHash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash's underlying bytes.
func (h TransactionHash) Bytes() []byte {
	b := make([]byte, TransactionHashSize)
	copy(b, h[:])
	return b
}

// TransactionHashFromHex decodes a hex string into a TransactionHash.
func TransactionHashFromHex(s string) (TransactionHash, error) {
	var h TransactionHash
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return h, err
	}
	if len(b) != TransactionHashSize {
		return h, fmt.Errorf("types: invalid transaction hash length: got %d want %d", len(b), TransactionHashSize)
	}
	copy(h[:], b)
	return h, nil
}
