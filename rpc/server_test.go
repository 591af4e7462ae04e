package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/gossip"
	"github.com/latticechain/ledgerd/ledger"
	"github.com/latticechain/ledgerd/storage"
	"github.com/latticechain/ledgerd/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Engine) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := storage.Open(path)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := ledger.NewEngine(store)
	admission := NewAdmission(engine, gossip.NopPublisher{})
	feed := NewFeed()
	srv := NewServer(admission, engine, feed)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go admission.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, engine
}

func doRPC(t *testing.T, ts *httptest.Server, method string, params interface{}) *Response {
	t.Helper()
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	reqBody, err := json.Marshal(&Request{JSONRPC: "2.0", Method: method, Params: paramsRaw, ID: json.RawMessage("1")})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(reqBody))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &rpcResp
}

func TestServerAddressBalanceForUnknownAddress(t *testing.T) {
	ts, _ := newTestServer(t)

	addr := "0000000000000000000000000000000000000000000000000000000000000009"
	resp := doRPC(t, ts, "addressBalance", []string{addr})
	if resp.Error != nil {
		t.Fatalf("addressBalance error: %+v", resp.Error)
	}
	if resp.Result != "0" {
		t.Errorf("balance = %v, want %q", resp.Result, "0")
	}
}

func TestServerSubmitTransactionEndToEnd(t *testing.T) {
	ts, engine := newTestServer(t)

	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub := priv.PubKey().SEC1Compressed()
	from := types.AddressFromPublicKeyHash(pub)
	to := types.Address{0xcc}

	if err := engine.LoadGenesis(&ledger.GenesisManifest{Balances: map[string]uint64{from.String(): 100}}); err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}

	genesisRecord, err := engine.GetTransaction(from, 0)
	if err != nil {
		t.Fatalf("GetTransaction(genesis): %v", err)
	}
	headID, err := genesisRecord.Transaction.CalculateID()
	if err != nil {
		t.Fatalf("CalculateID: %v", err)
	}

	tx := ledger.Transaction{
		From:                  from,
		To:                    to,
		Amount:                types.PublicAmount(20),
		TimestampMillis:       time.Now().UnixMilli(),
		PreviousTransactionID: headID,
		PublicKey:             pub,
	}
	id, err := tx.CalculateID()
	if err != nil {
		t.Fatalf("CalculateID: %v", err)
	}
	sig, err := crypto.Sign(priv, [32]byte(id))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	amount := uint64(20)
	wireReq := TransactionRequest{
		From:                  from.String(),
		To:                    to.String(),
		Amount:                amountWire{Public: &amount},
		PublicKey:             hexEncode(pub),
		Signature:             signatureWire{R: sig.R.Text(16), S: sig.S.Text(16)},
		TimestampMillis:       tx.TimestampMillis,
		PreviousTransactionID: headID.String(),
	}

	resp := doRPC(t, ts, "submitTransaction", []TransactionRequest{wireReq})
	if resp.Error != nil {
		t.Fatalf("submitTransaction error: %+v", resp.Error)
	}

	balResp := doRPC(t, ts, "addressBalance", []string{from.String()})
	if balResp.Error != nil {
		t.Fatalf("addressBalance error: %+v", balResp.Error)
	}
	if balResp.Result != "80" {
		t.Errorf("sender balance = %v, want %q", balResp.Result, "80")
	}

	recvResp := doRPC(t, ts, "addressBalance", []string{to.String()})
	if recvResp.Error != nil {
		t.Fatalf("addressBalance(to) error: %+v", recvResp.Error)
	}
	if recvResp.Result != "20" {
		t.Errorf("recipient balance = %v, want %q", recvResp.Result, "20")
	}
}

func TestServerSubmitTransactionRejectsBrokenChain(t *testing.T) {
	ts, engine := newTestServer(t)

	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub := priv.PubKey().SEC1Compressed()
	from := types.AddressFromPublicKeyHash(pub)
	to := types.Address{0xdd}

	if err := engine.LoadGenesis(&ledger.GenesisManifest{Balances: map[string]uint64{from.String(): 100}}); err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}

	bogusPrev := types.TransactionHash{0x01, 0x02, 0x03}
	tx := ledger.Transaction{
		From:                  from,
		To:                    to,
		Amount:                types.PublicAmount(10),
		TimestampMillis:       time.Now().UnixMilli(),
		PreviousTransactionID: bogusPrev,
		PublicKey:             pub,
	}
	id, err := tx.CalculateID()
	if err != nil {
		t.Fatalf("CalculateID: %v", err)
	}
	sig, err := crypto.Sign(priv, [32]byte(id))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	amount := uint64(10)
	wireReq := TransactionRequest{
		From:                  from.String(),
		To:                    to.String(),
		Amount:                amountWire{Public: &amount},
		PublicKey:             hexEncode(pub),
		Signature:             signatureWire{R: sig.R.Text(16), S: sig.S.Text(16)},
		TimestampMillis:       tx.TimestampMillis,
		PreviousTransactionID: bogusPrev.String(),
	}

	resp := doRPC(t, ts, "submitTransaction", []TransactionRequest{wireReq})
	if resp.Error == nil {
		t.Fatal("expected a ChainBroken error for a bogus previous_transaction_id")
	}
}

func TestServerHandlesMalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rpcResp.Error == nil || rpcResp.Error.Code != ErrCodeParse {
		t.Errorf("error = %+v, want code %d", rpcResp.Error, ErrCodeParse)
	}
}

func TestServerListTransactionIdsAndGetTransaction(t *testing.T) {
	ts, engine := newTestServer(t)

	addr := "000000000000000000000000000000000000000000000000000000000000000b"
	if err := engine.LoadGenesis(&ledger.GenesisManifest{Balances: map[string]uint64{addr: 5}}); err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}

	listResp := doRPC(t, ts, "listTransactionIds", []string{})
	if listResp.Error != nil {
		t.Fatalf("listTransactionIds error: %+v", listResp.Error)
	}
	ids, ok := listResp.Result.([]interface{})
	if !ok || len(ids) == 0 {
		t.Fatalf("listTransactionIds result = %v, want a non-empty list", listResp.Result)
	}

	a, err := types.AddressFromHex(addr)
	if err != nil {
		t.Fatalf("AddressFromHex: %v", err)
	}
	getResp := doRPC(t, ts, "getTransaction", []map[string]interface{}{{"address": a.String(), "height": 0}})
	if getResp.Error != nil {
		t.Fatalf("getTransaction error: %+v", getResp.Error)
	}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
