// Command ledger-tx is a minimal CLI transaction builder. It loads a
// private key, constructs a Transaction, signs it, and prints a
// ready-to-POST JSON-RPC envelope for the submitTransaction method on
// stdout. It is the out-of-scope "CLI wallet" collaborator spec.md §1
// names as an external interface, not part of the ledger engine core.
//
// Usage:
//
//	ledger-tx --private-key <hex> --sender <hex> --recipient <hex> \
//	    --amount <uint64> --previous-transaction-id <hex>
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/ledger"
	"github.com/latticechain/ledgerd/types"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("ledger-tx", flag.ContinueOnError)
	fs.SetOutput(stderr)

	privateKeyHex := fs.String("private-key", "", "hex-encoded secp256k1 private key")
	senderHex := fs.String("sender", "", "hex-encoded sender address")
	recipientHex := fs.String("recipient", "", "hex-encoded recipient address")
	amount := fs.Uint64("amount", 0, "public amount to transfer")
	previousIDHex := fs.String("previous-transaction-id", "", "hex-encoded id of the sender's current chain head (all-zero sentinel for genesis)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *privateKeyHex == "" || *senderHex == "" || *recipientHex == "" || *previousIDHex == "" {
		fmt.Fprintln(stderr, "error: --private-key, --sender, --recipient, and --previous-transaction-id are required")
		return 1
	}

	req, err := buildRequest(*privateKeyHex, *senderHex, *recipientHex, *amount, *previousIDHex)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	envelope := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "submitTransaction",
		"params":  []interface{}{req},
		"id":      1,
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// txRequestWire mirrors rpc.TransactionRequest's JSON shape without
// importing the rpc package, keeping this binary's only dependency on
// the ledger engine's core types and cryptography.
type txRequestWire struct {
	From                  string                 `json:"from"`
	To                    string                 `json:"to"`
	Amount                map[string]interface{} `json:"amount"`
	PublicKey             string                 `json:"public_key"`
	Signature             map[string]string      `json:"signature"`
	TimestampMillis       int64                  `json:"timestamp"`
	PreviousTransactionID string                 `json:"previous_transaction_id"`
}

func buildRequest(privateKeyHex, senderHex, recipientHex string, amount uint64, previousIDHex string) (*txRequestWire, error) {
	privBytes, err := hex.DecodeString(trimHex(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	priv, err := crypto.PrivateKeyFromBytes(privBytes)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	from, err := types.AddressFromHex(senderHex)
	if err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	to, err := types.AddressFromHex(recipientHex)
	if err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	previousID, err := types.TransactionHashFromHex(previousIDHex)
	if err != nil {
		return nil, fmt.Errorf("previous transaction id: %w", err)
	}

	tx := ledger.Transaction{
		From:                  from,
		To:                    to,
		Amount:                types.PublicAmount(amount),
		TimestampMillis:       nowMillis(),
		PreviousTransactionID: previousID,
		PublicKey:             priv.PubKey().SEC1Compressed(),
	}

	id, err := tx.CalculateID()
	if err != nil {
		return nil, fmt.Errorf("calculate id: %w", err)
	}

	sig, err := crypto.Sign(priv, [32]byte(id))
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	return &txRequestWire{
		From:   from.String(),
		To:     to.String(),
		Amount: map[string]interface{}{"Public": amount},
		PublicKey: hex.EncodeToString(tx.PublicKey),
		Signature: map[string]string{
			"R": bigIntToHex(sig.R),
			"s": bigIntToHex(sig.S),
		},
		TimestampMillis:       tx.TimestampMillis,
		PreviousTransactionID: previousID.String(),
	}, nil
}

func bigIntToHex(n *big.Int) string {
	return hex.EncodeToString(leftPad32(n))
}

func leftPad32(n *big.Int) []byte {
	b := n.Bytes()
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
