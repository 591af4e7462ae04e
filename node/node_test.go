package node

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/latticechain/ledgerd/gossip"
	"github.com/latticechain/ledgerd/types"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.RPCPort = 0 // OS-assigned free port
	return cfg
}

func TestNewOpensStorageAndValidatesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "nonsense"

	if _, err := New(cfg, gossip.NopPublisher{}); err == nil {
		t.Error("expected New to reject an invalid config")
	}
}

func TestNewLoadsGenesisFile(t *testing.T) {
	cfg := testConfig(t)

	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	manifest := map[string]interface{}{
		"balances": map[string]uint64{
			"000000000000000000000000000000000000000000000000000000000000000e": 500,
		},
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if err := os.WriteFile(genesisPath, data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg.GenesisFile = genesisPath

	n, err := New(cfg, gossip.NopPublisher{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer n.store.Close()

	balance, _, err := n.engine.GetBalanceAndHeight(mustAddr(t, "000000000000000000000000000000000000000000000000000000000000000e"))
	if err != nil {
		t.Fatalf("GetBalanceAndHeight: %v", err)
	}
	if balance != 500 {
		t.Errorf("balance = %d, want 500", balance)
	}
}

func TestNewRejectsMissingGenesisFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenesisFile = filepath.Join(t.TempDir(), "missing.json")

	if _, err := New(cfg, gossip.NopPublisher{}); err == nil {
		t.Error("expected New to fail for a missing genesis file")
	}
}

func TestStartServesRPCAndStopShutsDownCleanly(t *testing.T) {
	cfg := testConfig(t)
	n, err := New(cfg, gossip.NopPublisher{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The RPC server is listening on an OS-assigned port recorded on
	// the http.Server's underlying listener; probe health indirectly
	// through a well-formed JSON-RPC call to whichever address the
	// config resolves to is not possible with port 0, so instead this
	// exercises only that Start/Stop do not error and Wait unblocks
	// once the server has been asked to shut down.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	waited := make(chan struct{})
	go func() {
		n.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not unblock after Stop")
	}
}

func TestStartWithMetricsExposesMetricsEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics = true

	n, err := New(cfg, gossip.NopPublisher{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n.Stop(ctx)
	}()

	// The metrics server binds a fixed address; give the listener a
	// moment to come up before probing it.
	time.Sleep(50 * time.Millisecond)
	resp, err := http.Get("http://127.0.0.1:9645/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", resp.StatusCode)
	}
}

func mustAddr(t *testing.T, hexAddr string) types.Address {
	t.Helper()
	a, err := types.AddressFromHex(hexAddr)
	if err != nil {
		t.Fatalf("types.AddressFromHex: %v", err)
	}
	return a
}
