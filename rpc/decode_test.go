package rpc

import (
	"encoding/base64"
	"testing"

	"github.com/latticechain/ledgerd/types"
)

func TestToAddTransactionRequestPublicAmount(t *testing.T) {
	amount := uint64(30)
	req := &TransactionRequest{
		From:                  "0000000000000000000000000000000000000000000000000000000000000001",
		To:                    "0000000000000000000000000000000000000000000000000000000000000002",
		Amount:                amountWire{Public: &amount},
		PublicKey:             "02aabbcc",
		Signature:             signatureWire{R: "01", S: "02"},
		TimestampMillis:       1000,
		PreviousTransactionID: "0000000000000000000000000000000000000000000000000000000000000003",
	}

	out, err := toAddTransactionRequest(req)
	if err != nil {
		t.Fatalf("toAddTransactionRequest: %v", err)
	}

	pub, ok := out.Amount.(types.PublicAmount)
	if !ok || uint64(pub) != amount {
		t.Errorf("Amount = %v, want PublicAmount(%d)", out.Amount, amount)
	}
	if out.Signature.R.Int64() != 1 || out.Signature.S.Int64() != 2 {
		t.Errorf("signature = (%v, %v), want (1, 2)", out.Signature.R, out.Signature.S)
	}
}

func TestToAddTransactionRequestConfidentialAmount(t *testing.T) {
	c1 := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	c2 := base64.StdEncoding.EncodeToString([]byte{4, 5, 6})
	proof := base64.StdEncoding.EncodeToString([]byte{7, 8, 9})

	req := &TransactionRequest{
		From: "0000000000000000000000000000000000000000000000000000000000000001",
		To:   "0000000000000000000000000000000000000000000000000000000000000002",
		Amount: amountWire{Confidential: &confidentialWire{
			C1: c1, C2: c2, RangeProof: proof,
		}},
		PublicKey:             "02aabbcc",
		Signature:             signatureWire{R: "01", S: "02"},
		PreviousTransactionID: "0000000000000000000000000000000000000000000000000000000000000003",
	}

	out, err := toAddTransactionRequest(req)
	if err != nil {
		t.Fatalf("toAddTransactionRequest: %v", err)
	}

	ca, ok := out.Amount.(types.ConfidentialAmount)
	if !ok {
		t.Fatalf("Amount = %T, want types.ConfidentialAmount", out.Amount)
	}
	if string(ca.C1) != "\x01\x02\x03" {
		t.Error("c1 did not decode correctly")
	}
}

func TestToAddTransactionRequestRejectsMissingAmount(t *testing.T) {
	req := &TransactionRequest{
		From:                  "0000000000000000000000000000000000000000000000000000000000000001",
		To:                    "0000000000000000000000000000000000000000000000000000000000000002",
		PublicKey:             "02aabbcc",
		Signature:             signatureWire{R: "01", S: "02"},
		PreviousTransactionID: "0000000000000000000000000000000000000000000000000000000000000003",
	}
	if _, err := toAddTransactionRequest(req); err == nil {
		t.Error("expected an error when amount sets neither Public nor Confidential")
	}
}
