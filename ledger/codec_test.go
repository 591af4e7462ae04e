package ledger

import (
	"math/big"
	"testing"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/types"
)

func TestEncodeDecodeRecordPublicAmount(t *testing.T) {
	record := &StoredRecord{
		Transaction: Transaction{
			From:                  types.Address{1},
			To:                    types.Address{2},
			Amount:                types.PublicAmount(500),
			TimestampMillis:       42,
			PreviousTransactionID: types.TransactionHash{3},
			PublicKey:             []byte{0x02, 0x03, 0x04},
			Signature:             &crypto.Signature{R: big.NewInt(7), S: big.NewInt(8)},
		},
		Status:    StatusConfirmed,
		Signature: &crypto.Signature{R: big.NewInt(7), S: big.NewInt(8)},
	}

	data, err := encodeRecord(record)
	if err != nil {
		t.Fatalf("encodeRecord: %v", err)
	}

	decoded, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}

	if decoded.Transaction.From != record.Transaction.From {
		t.Errorf("From = %v, want %v", decoded.Transaction.From, record.Transaction.From)
	}
	if decoded.Transaction.To != record.Transaction.To {
		t.Errorf("To = %v, want %v", decoded.Transaction.To, record.Transaction.To)
	}
	amt, ok := decoded.Transaction.Amount.(types.PublicAmount)
	if !ok || uint64(amt) != 500 {
		t.Errorf("Amount = %v, want PublicAmount(500)", decoded.Transaction.Amount)
	}
	if decoded.Status != StatusConfirmed {
		t.Errorf("Status = %v, want StatusConfirmed", decoded.Status)
	}
	if decoded.Signature.R.Cmp(record.Signature.R) != 0 || decoded.Signature.S.Cmp(record.Signature.S) != 0 {
		t.Error("signature did not round-trip")
	}
}

func TestEncodeDecodeRecordConfidentialAmount(t *testing.T) {
	record := &StoredRecord{
		Transaction: Transaction{
			From:   types.Address{1},
			To:     types.Address{2},
			Amount: types.ConfidentialAmount{C1: []byte{1, 2}, C2: []byte{3, 4}, RangeProof: []byte{5, 6, 7}},
		},
		Status: StatusConfirmed,
	}

	data, err := encodeRecord(record)
	if err != nil {
		t.Fatalf("encodeRecord: %v", err)
	}
	decoded, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}

	ca, ok := decoded.Transaction.Amount.(types.ConfidentialAmount)
	if !ok {
		t.Fatalf("Amount = %T, want types.ConfidentialAmount", decoded.Transaction.Amount)
	}
	if string(ca.C1) != "\x01\x02" || string(ca.C2) != "\x03\x04" || string(ca.RangeProof) != "\x05\x06\x07" {
		t.Error("confidential amount fields did not round-trip")
	}
	if decoded.Signature != nil {
		t.Error("expected nil signature to round-trip as nil")
	}
}

func TestEncodeDecodeRecordWithStealthMetadata(t *testing.T) {
	record := &StoredRecord{
		Transaction: Transaction{
			From:   types.Address{1},
			To:     types.Address{2},
			Amount: types.PublicAmount(1),
			StealthMetadata: &crypto.StealthMetadata{
				EphemeralPublicKey: []byte{9, 9, 9},
				ViewTag:            0x42,
			},
		},
		Status: StatusConfirmed,
	}

	data, err := encodeRecord(record)
	if err != nil {
		t.Fatalf("encodeRecord: %v", err)
	}
	decoded, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}

	if decoded.Transaction.StealthMetadata == nil {
		t.Fatal("stealth metadata did not round-trip")
	}
	if decoded.Transaction.StealthMetadata.ViewTag != 0x42 {
		t.Errorf("ViewTag = %x, want 0x42", decoded.Transaction.StealthMetadata.ViewTag)
	}
	if string(decoded.Transaction.StealthMetadata.EphemeralPublicKey) != "\x09\x09\x09" {
		t.Error("ephemeral public key did not round-trip")
	}
}
