package rpc

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/ledger"
	"github.com/latticechain/ledgerd/types"
)

// toAddTransactionRequest decodes the wire-level TransactionRequest
// into the engine's AddTransactionRequest, per spec.md §6's schema.
func toAddTransactionRequest(req *TransactionRequest) (ledger.AddTransactionRequest, error) {
	from, err := types.AddressFromHex(req.From)
	if err != nil {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid from address: %w", err)
	}
	to, err := types.AddressFromHex(req.To)
	if err != nil {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid to address: %w", err)
	}

	amount, err := decodeAmount(req.Amount)
	if err != nil {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid amount: %w", err)
	}

	pubKeyBytes, err := hex.DecodeString(trimHex(req.PublicKey))
	if err != nil {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid public_key: %w", err)
	}

	r, ok := new(big.Int).SetString(trimHex(req.Signature.R), 16)
	if !ok {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid signature.R")
	}
	s, ok := new(big.Int).SetString(trimHex(req.Signature.S), 16)
	if !ok {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid signature.s")
	}

	prevID, err := types.TransactionHashFromHex(req.PreviousTransactionID)
	if err != nil {
		return ledger.AddTransactionRequest{}, fmt.Errorf("invalid previous_transaction_id: %w", err)
	}

	var stealth *crypto.StealthMetadata
	if req.StealthMetadata != nil {
		ephemeral, err := base64.StdEncoding.DecodeString(req.StealthMetadata.EphemeralPublicKey)
		if err != nil {
			return ledger.AddTransactionRequest{}, fmt.Errorf("invalid stealth_metadata.ephemeral_public_key: %w", err)
		}
		stealth = &crypto.StealthMetadata{EphemeralPublicKey: ephemeral, ViewTag: req.StealthMetadata.ViewTag}
	}

	return ledger.AddTransactionRequest{
		From:                  from,
		To:                    to,
		Amount:                amount,
		PublicKey:             pubKeyBytes,
		TimestampMillis:       req.TimestampMillis,
		PreviousTransactionID: prevID,
		Signature:             &crypto.Signature{R: r, S: s},
		StealthMetadata:       stealth,
	}, nil
}

func decodeAmount(w amountWire) (types.Amount, error) {
	switch {
	case w.Public != nil:
		return types.PublicAmount(*w.Public), nil
	case w.Confidential != nil:
		c1, err := base64.StdEncoding.DecodeString(w.Confidential.C1)
		if err != nil {
			return nil, fmt.Errorf("c1: %w", err)
		}
		c2, err := base64.StdEncoding.DecodeString(w.Confidential.C2)
		if err != nil {
			return nil, fmt.Errorf("c2: %w", err)
		}
		proof, err := base64.StdEncoding.DecodeString(w.Confidential.RangeProof)
		if err != nil {
			return nil, fmt.Errorf("range_proof: %w", err)
		}
		return types.ConfidentialAmount{C1: c1, C2: c2, RangeProof: proof}, nil
	default:
		return nil, fmt.Errorf("amount must set either Public or Confidential")
	}
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
