package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/types"
)

// encodeRecord produces the stable binary encoding of a StoredRecord
// spec.md §4.3 requires. The format is a flat, explicitly-ordered
// field layout (no reflection-based codec) so that the wire format is
// independent of this package's Go struct layout.
func encodeRecord(r *StoredRecord) ([]byte, error) {
	var buf bytes.Buffer

	if err := encodeTransaction(&buf, &r.Transaction); err != nil {
		return nil, fmt.Errorf("ledger: encode record: %w", err)
	}

	buf.WriteByte(byte(r.Status))

	if err := encodeSignature(&buf, r.Signature); err != nil {
		return nil, fmt.Errorf("ledger: encode record: signature: %w", err)
	}

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*StoredRecord, error) {
	r := bytes.NewReader(data)

	tx, err := decodeTransaction(r)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode record: %w", err)
	}

	statusByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("ledger: decode record: status: %w", err)
	}

	sig, err := decodeSignature(r)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode record: signature: %w", err)
	}

	return &StoredRecord{
		Transaction: *tx,
		Status:      TransactionStatus(statusByte),
		Signature:   sig,
	}, nil
}

func encodeTransaction(buf *bytes.Buffer, t *Transaction) error {
	buf.Write(t.From[:])
	buf.Write(t.To[:])

	switch amt := t.Amount.(type) {
	case types.PublicAmount:
		buf.WriteByte(0)
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], uint64(amt))
		buf.Write(v[:])
	case types.ConfidentialAmount:
		buf.WriteByte(1)
		writeBytes(buf, amt.C1)
		writeBytes(buf, amt.C2)
		writeBytes(buf, amt.RangeProof)
	default:
		return fmt.Errorf("unknown amount kind %T", t.Amount)
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(t.TimestampMillis))
	buf.Write(ts[:])

	buf.Write(t.PreviousTransactionID[:])

	writeBytes(buf, t.PublicKey)

	if err := encodeSignature(buf, t.Signature); err != nil {
		return err
	}

	if t.StealthMetadata == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeBytes(buf, t.StealthMetadata.EphemeralPublicKey)
		buf.WriteByte(t.StealthMetadata.ViewTag)
	}

	return nil
}

func decodeTransaction(r *bytes.Reader) (*Transaction, error) {
	t := &Transaction{}

	if _, err := r.Read(t.From[:]); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if _, err := r.Read(t.To[:]); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	tag, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("amount tag: %w", err)
	}
	switch tag {
	case 0:
		var v [8]byte
		if _, err := r.Read(v[:]); err != nil {
			return nil, fmt.Errorf("public amount: %w", err)
		}
		t.Amount = types.PublicAmount(binary.BigEndian.Uint64(v[:]))
	case 1:
		c1, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("confidential c1: %w", err)
		}
		c2, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("confidential c2: %w", err)
		}
		proof, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("confidential range_proof: %w", err)
		}
		t.Amount = types.ConfidentialAmount{C1: c1, C2: c2, RangeProof: proof}
	default:
		return nil, fmt.Errorf("unknown amount tag %d", tag)
	}

	var ts [8]byte
	if _, err := r.Read(ts[:]); err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	t.TimestampMillis = int64(binary.BigEndian.Uint64(ts[:]))

	if _, err := r.Read(t.PreviousTransactionID[:]); err != nil {
		return nil, fmt.Errorf("previous_transaction_id: %w", err)
	}

	pubKey, err := readBytes(r)
	if err != nil {
		return nil, fmt.Errorf("public_key: %w", err)
	}
	t.PublicKey = pubKey

	sig, err := decodeSignature(r)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	t.Signature = sig

	stealthTag, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("stealth tag: %w", err)
	}
	if stealthTag == 1 {
		ephemeral, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("stealth ephemeral key: %w", err)
		}
		viewTag, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("stealth view tag: %w", err)
		}
		t.StealthMetadata = &crypto.StealthMetadata{EphemeralPublicKey: ephemeral, ViewTag: viewTag}
	}

	return t, nil
}

func encodeSignature(buf *bytes.Buffer, sig *crypto.Signature) error {
	if sig == nil {
		buf.WriteByte(0)
		return nil
	}
	buf.WriteByte(1)
	buf.Write(leftPad32Big(sig.R))
	buf.Write(leftPad32Big(sig.S))
	return nil
}

func decodeSignature(r *bytes.Reader) (*crypto.Signature, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	var rb, sb [32]byte
	if _, err := r.Read(rb[:]); err != nil {
		return nil, err
	}
	if _, err := r.Read(sb[:]); err != nil {
		return nil, err
	}
	return &crypto.Signature{R: new(big.Int).SetBytes(rb[:]), S: new(big.Int).SetBytes(sb[:])}, nil
}

func leftPad32Big(n *big.Int) []byte {
	b := n.Bytes()
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
