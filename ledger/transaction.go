// Package ledger implements the transaction module and the ledger
// engine: canonical transaction serialization and id computation,
// genesis loading, the admission pipeline, the chain walker, and
// balance computation.
package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/types"
)

// TransactionStatus is the lifecycle state of a StoredRecord. Status
// transitions are monotone toward a terminal state; this single-node
// design writes every admitted record directly as Confirmed.
type TransactionStatus int

const (
	StatusPending TransactionStatus = iota
	StatusConfirmed
	StatusInvalid
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Transaction is the canonical, signable record described by spec.md
// §3: {from, to, amount, timestamp_ms, previous_transaction_id}, plus
// a detached signature and the signing public key.
type Transaction struct {
	From                  types.Address
	To                    types.Address
	Amount                types.Amount
	TimestampMillis       int64
	PreviousTransactionID types.TransactionHash

	PublicKey []byte // SEC1-encoded, compressed or uncompressed
	Signature *crypto.Signature

	StealthMetadata *crypto.StealthMetadata // optional, per spec.md §4.2
}

// CalculateID implements spec.md §4.2 calculate_id: SHA-256 over the
// concatenation, in fixed order, of from, to, amount-dependent bytes,
// big-endian timestamp, and previous_transaction_id.
//
// Amount bytes are: for Public(n), n as 8 big-endian bytes; for
// Confidential, the compressed SEC1 encoding of c1, then of c2, then
// the proof's canonical byte encoding.
func (t *Transaction) CalculateID() (types.TransactionHash, error) {
	h := sha256.New()
	h.Write(t.From[:])
	h.Write(t.To[:])

	switch amt := t.Amount.(type) {
	case types.PublicAmount:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(amt))
		h.Write(buf[:])
	case types.ConfidentialAmount:
		h.Write(amt.C1)
		h.Write(amt.C2)
		h.Write(amt.RangeProof)
	default:
		return types.TransactionHash{}, fmt.Errorf("ledger: calculate_id: unknown amount kind %T", t.Amount)
	}

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(t.TimestampMillis))
	h.Write(tsBuf[:])

	h.Write(t.PreviousTransactionID[:])

	var id types.TransactionHash
	copy(id[:], h.Sum(nil))
	return id, nil
}

// StoredRecord is the unit persisted to the storage layer: the
// transaction, its lifecycle status, and its signature, serialized
// with a stable binary codec (see ledger/codec.go).
type StoredRecord struct {
	Transaction Transaction
	Status      TransactionStatus
	Signature   *crypto.Signature
}

// genesisSentinelBytes is the all-ones value used for both the R and S
// components of the sentinel signature spec.md §9 describes: it cannot
// verify under normal ECDSA rules and is never passed through Verify.
// The engine only verifies the signature of an incoming transaction;
// stored records, genesis records included, are never re-verified.
var (
	genesisSentinelBytes = func() []byte {
		b := make([]byte, 32)
		for i := range b {
			b[i] = 0xff
		}
		return b
	}()
)

// IsGenesisSentinel reports whether sig is the distinguished genesis
// marker (both R and S equal to 32 bytes of 0xff).
func IsGenesisSentinel(sig *crypto.Signature) bool {
	if sig == nil {
		return false
	}
	return bytesEqualBigInt(sig.R, genesisSentinelBytes) && bytesEqualBigInt(sig.S, genesisSentinelBytes)
}

func bytesEqualBigInt(n interface{ Bytes() []byte }, want []byte) bool {
	got := n.Bytes()
	if len(got) > len(want) {
		return false
	}
	padded := make([]byte, len(want))
	copy(padded[len(want)-len(got):], got)
	for i := range want {
		if padded[i] != want[i] {
			return false
		}
	}
	return true
}
