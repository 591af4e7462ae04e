package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/storage"
	"github.com/latticechain/ledgerd/types"
)

// GenesisManifest is the JSON genesis file format from spec.md §6:
// {"balances": {"<hex-address>": <u64>, ...}}.
type GenesisManifest struct {
	Balances map[string]uint64 `json:"balances"`
}

// LoadGenesisFile reads and parses a genesis manifest file.
func LoadGenesisFile(path string) (*GenesisManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: read genesis file %s: %w", path, err)
	}
	var m GenesisManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("ledger: parse genesis file %s: %w", path, err)
	}
	return &m, nil
}

// genesisSignature is the sentinel signature spec.md §3 and §9
// describe: it cannot verify under normal ECDSA rules, and
// IsGenesisSentinel reports whether a signature is this marker. Stored
// records are never passed to Verify, so genesis records need no valid
// signature; this field exists only so StoredRecord has a uniform
// shape on disk.
func genesisSignature() *crypto.Signature {
	return &crypto.Signature{
		R: new(big.Int).SetBytes(genesisSentinelBytes),
		S: new(big.Int).SetBytes(genesisSentinelBytes),
	}
}

// LoadGenesis implements spec.md §4.4 load_genesis: for each
// (address, amount) pair, inserts a height-0 StoredRecord crediting
// the address from the zero address, with status Confirmed and the
// sentinel signature. Idempotent within a boot: an address that
// already has a height-0 record is left untouched.
func (e *Engine) LoadGenesis(manifest *GenesisManifest) error {
	return e.store.Write(func(w *storage.WriteTx) error {
		for hexAddr, amount := range manifest.Balances {
			addr, err := types.AddressFromHex(hexAddr)
			if err != nil {
				return wrapError(KindBadRequest, err, "genesis: invalid address %q", hexAddr)
			}

			key := storage.Key(addr.String(), 0)
			if _, err := w.Get(key); err == nil {
				continue // already loaded this boot
			}

			tx := Transaction{
				From:                  types.ZeroAddress,
				To:                    addr,
				Amount:                types.PublicAmount(amount),
				TimestampMillis:       0,
				PreviousTransactionID: types.ZeroTransactionHash,
			}

			record := &StoredRecord{
				Transaction: tx,
				Status:      StatusConfirmed,
				Signature:   genesisSignature(),
			}

			encoded, err := encodeRecord(record)
			if err != nil {
				return wrapError(KindInternal, err, "genesis: encode record for %s", addr)
			}
			if err := w.Put(key, encoded); err != nil {
				return wrapError(KindStorage, err, "genesis: persist record for %s", addr)
			}
		}
		return nil
	})
}
