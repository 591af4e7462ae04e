package ledger

import (
	"fmt"
	"sync"

	"github.com/latticechain/ledgerd/crypto"
	"github.com/latticechain/ledgerd/log"
	"github.com/latticechain/ledgerd/storage"
	"github.com/latticechain/ledgerd/types"
)

var logger = log.Module("ledger")

// Engine is the ledger engine described by spec.md §4.4. It exclusively
// owns the storage environment's write path; per §9's design note, the
// natural caller is a single owning task (see rpc.Admission) that holds
// the only write-capable handle and serializes every admission through
// Engine.AddTransaction. AddTransaction additionally holds the engine's
// own mutex for the whole admission, so concurrent callers are
// serialized even without the admission queue.
type Engine struct {
	store *storage.Store
	mu    sync.Mutex
}

// NewEngine wraps an opened storage.Store.
func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// AddTransactionRequest bundles the parameters of spec.md §4.4
// add_transaction.
type AddTransactionRequest struct {
	From                  types.Address
	To                    types.Address
	Amount                types.Amount
	PublicKey             []byte
	TimestampMillis       int64
	PreviousTransactionID types.TransactionHash
	Signature             *crypto.Signature
	StealthMetadata       *crypto.StealthMetadata
}

// AddTransaction implements spec.md §4.4 add_transaction's seven-step
// algorithm under the engine's exclusive writer.
func (e *Engine) AddTransaction(req AddTransactionRequest) (types.TransactionHash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := Transaction{
		From:                  req.From,
		To:                    req.To,
		Amount:                req.Amount,
		TimestampMillis:       req.TimestampMillis,
		PreviousTransactionID: req.PreviousTransactionID,
		PublicKey:             req.PublicKey,
		Signature:             req.Signature,
		StealthMetadata:       req.StealthMetadata,
	}

	// Step 1: reconstruct and compute id.
	id, err := tx.CalculateID()
	if err != nil {
		return types.TransactionHash{}, wrapError(KindInternal, err, "calculate_id")
	}

	// Step 2: signature check.
	pub, err := crypto.PublicKeyFromBytes(req.PublicKey)
	if err != nil {
		return types.TransactionHash{}, wrapError(KindBadRequest, err, "invalid public key")
	}
	if err := crypto.Verify(pub, [32]byte(id), req.Signature); err != nil {
		return types.TransactionHash{}, wrapError(KindInvalidSignature, err, "signature verification failed")
	}

	var resultID types.TransactionHash
	err = e.store.Write(func(w *storage.WriteTx) error {
		senderAmounts := []types.Amount{tx.Amount}

		// Step 3: chain walk, starting at the sender's current head.
		headHeight, found, err := currentHeadHeight(w, req.From)
		if err != nil {
			return wrapError(KindStorage, err, "locate sender head")
		}

		terminalFound := false
		if found {
			headRecordID, amounts, err := walkChainBackward(w, req.From, headHeight)
			if err != nil {
				return err
			}
			if headRecordID != req.PreviousTransactionID {
				return newError(KindChainBroken, "previous_transaction_id does not match sender's current chain head")
			}
			senderAmounts = append(senderAmounts, amounts...)
		} else if req.PreviousTransactionID != types.ZeroTransactionHash {
			return newError(KindChainBroken, "previous_transaction_id must be the zero hash when the sender has no chain yet")
		}
		for _, a := range senderAmounts[1:] {
			if a.Kind() == types.AmountPublic {
				terminalFound = true
			}
		}
		if found && !terminalFound {
			return newError(KindChainBroken, "sender chain does not terminate at a Public genesis record")
		}

		// Step 4: commitment chain consistency.
		for i := 0; i+1 < len(senderAmounts); i++ {
			earlier, later := senderAmounts[i], senderAmounts[i+1]
			ok, err := compareGreaterOrEqual(earlier, later)
			if err != nil {
				return wrapError(KindInvalidRangeProof, err, "range proof verification failed")
			}
			if !ok {
				return newError(KindInsufficientBalance, "chain commitment does not decrease monotonically")
			}
		}

		// Step 5: balance check (public mode only).
		if pubAmt, ok := tx.Amount.(types.PublicAmount); ok {
			balance, _, err := computeBalanceAndHeight(w, req.From)
			if err != nil {
				return wrapError(KindStorage, err, "compute sender balance")
			}
			if uint64(pubAmt) > balance {
				return newError(KindInsufficientBalance, "balance %d insufficient for amount %d", balance, uint64(pubAmt))
			}
		}

		// Step 6: persist both the sender and recipient self-chain appends
		// in one commit.
		fromHeight := uint64(0)
		if found {
			fromHeight = headHeight + 1
		}
		toHeight, _, err := nextHeight(w, req.To)
		if err != nil {
			return wrapError(KindStorage, err, "locate recipient height")
		}

		record := &StoredRecord{Transaction: tx, Status: StatusConfirmed, Signature: req.Signature}
		encoded, err := encodeRecord(record)
		if err != nil {
			return wrapError(KindInternal, err, "encode record")
		}

		if err := w.Put(storage.Key(req.From.String(), fromHeight), encoded); err != nil {
			return wrapError(KindStorage, err, "persist sender append")
		}
		if err := w.Put(storage.Key(req.To.String(), toHeight), encoded); err != nil {
			return wrapError(KindStorage, err, "persist recipient append")
		}

		resultID = id
		return nil
	})
	if err != nil {
		return types.TransactionHash{}, err
	}

	logger.Info("admitted transaction", "id", resultID.String(), "from", req.From.String(), "to", req.To.String())
	return resultID, nil
}

// GetBalanceAndHeight implements spec.md §4.4 get_balance_and_height.
func (e *Engine) GetBalanceAndHeight(addr types.Address) (uint64, uint32, error) {
	var balance uint64
	var height uint32
	err := e.store.ReadSnapshot(func(r *storage.ReadTx) error {
		b, h, err := computeBalanceAndHeight(r, addr)
		if err != nil {
			return err
		}
		balance = b
		height = uint32(h)
		return nil
	})
	if err != nil {
		return 0, 0, wrapError(KindStorage, err, "get_balance_and_height")
	}
	return balance, height, nil
}

// GetTransaction implements spec.md §4.4 get_transaction: a read-only
// lookup by address and height (the storage layer's native key shape).
func (e *Engine) GetTransaction(addr types.Address, height uint64) (*StoredRecord, error) {
	var record *StoredRecord
	err := e.store.ReadSnapshot(func(r *storage.ReadTx) error {
		data, err := r.Get(storage.Key(addr.String(), height))
		if err != nil {
			return err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, newError(KindBadRequest, "no transaction at %s:%d", addr, height)
		}
		return nil, wrapError(KindStorage, err, "get_transaction")
	}
	return record, nil
}

// ListIDs implements spec.md §4.4 list_ids: a read-only cursor
// enumeration of every admitted transaction id.
func (e *Engine) ListIDs() ([]types.TransactionHash, error) {
	var ids []types.TransactionHash
	err := e.store.ReadSnapshot(func(r *storage.ReadTx) error {
		var walkErr error
		r.IterateAll(func(key, value []byte) bool {
			record, err := decodeRecord(value)
			if err != nil {
				walkErr = err
				return false
			}
			id, err := record.Transaction.CalculateID()
			if err != nil {
				walkErr = err
				return false
			}
			ids = append(ids, id)
			return true
		})
		return walkErr
	})
	if err != nil {
		return nil, wrapError(KindStorage, err, "list_ids")
	}
	return ids, nil
}

// --- internal helpers ---

type readerTx interface {
	Get(key []byte) ([]byte, error)
	IteratePrefix(prefix []byte, fn func(key, value []byte) bool)
}

// currentHeadHeight returns the height of the last record written to
// addr's self-chain, if any.
func currentHeadHeight(r readerTx, addr types.Address) (height uint64, found bool, err error) {
	r.IteratePrefix(storage.Prefix(addr.String()), func(key, value []byte) bool {
		_, h, parseErr := storage.ParseKey(key)
		if parseErr != nil {
			err = parseErr
			return false
		}
		if !found || h > height {
			height = h
			found = true
		}
		return true
	})
	return height, found, err
}

// nextHeight returns the next free height on addr's self-chain.
func nextHeight(r readerTx, addr types.Address) (uint64, bool, error) {
	head, found, err := currentHeadHeight(r, addr)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	return head + 1, true, nil
}

// walkChainBackward implements the backward portion of spec.md §4.4
// step 3: starting at headHeight, follow previous_transaction_id
// pointers down to height 0, verifying at each step that the pointed-
// to record's own id matches the pointer, and collecting amounts in
// closest-to-current-first order. It returns the id of the record at
// headHeight so the caller can check it against the new transaction's
// declared previous_transaction_id.
func walkChainBackward(r readerTx, addr types.Address, headHeight uint64) (types.TransactionHash, []types.Amount, error) {
	var amounts []types.Amount
	var headRecordID types.TransactionHash

	expectedID := (*types.TransactionHash)(nil)
	height := headHeight
	for {
		data, err := r.Get(storage.Key(addr.String(), height))
		if err != nil {
			return types.TransactionHash{}, nil, newError(KindChainBroken, "missing record at %s:%d", addr, height)
		}
		record, err := decodeRecord(data)
		if err != nil {
			return types.TransactionHash{}, nil, wrapError(KindInternal, err, "decode record at %s:%d", addr, height)
		}

		actualID, err := record.Transaction.CalculateID()
		if err != nil {
			return types.TransactionHash{}, nil, wrapError(KindInternal, err, "calculate_id at %s:%d", addr, height)
		}
		if height == headHeight {
			headRecordID = actualID
		}
		if expectedID != nil && actualID != *expectedID {
			return types.TransactionHash{}, nil, newError(KindChainBroken, "chain linkage mismatch at %s:%d", addr, height)
		}

		amounts = append(amounts, record.Transaction.Amount)

		if record.Transaction.Amount.Kind() == types.AmountPublic {
			return headRecordID, amounts, nil
		}
		if height == 0 {
			return types.TransactionHash{}, nil, newError(KindChainBroken, "chain does not terminate at a Public genesis record")
		}

		prev := record.Transaction.PreviousTransactionID
		expectedID = &prev
		height--
	}
}

// computeBalanceAndHeight implements spec.md §4.4
// get_balance_and_height's accounting rule: public credits/debits are
// summed; confidential credits/debits are skipped (reconciled only by
// chain-walk verification at admission time).
func computeBalanceAndHeight(r readerTx, addr types.Address) (balance uint64, nextHeight uint64, err error) {
	var walkErr error
	r.IteratePrefix(storage.Prefix(addr.String()), func(key, value []byte) bool {
		_, h, parseErr := storage.ParseKey(key)
		if parseErr != nil {
			walkErr = parseErr
			return false
		}
		if h+1 > nextHeight {
			nextHeight = h + 1
		}

		record, decodeErr := decodeRecord(value)
		if decodeErr != nil {
			walkErr = decodeErr
			return false
		}

		pubAmt, ok := record.Transaction.Amount.(types.PublicAmount)
		if !ok {
			return true // confidential: skipped per spec.md
		}
		if record.Transaction.To == addr {
			balance += uint64(pubAmt)
		}
		if record.Transaction.From == addr && record.Transaction.From != types.ZeroAddress {
			balance -= uint64(pubAmt)
		}
		return true
	})
	return balance, nextHeight, walkErr
}

// compareGreaterOrEqual dispatches the Confidential/Public comparison
// matrix spec.md §4.4 step 4 describes: (Confidential, Confidential)
// uses VerifyGreaterThan; (Confidential, Public) uses
// VerifyGreaterThanU64; any pair whose earlier element is Public is
// not compared at all and always allowed to continue (balance
// sufficiency for Public amounts is enforced separately in step 5).
func compareGreaterOrEqual(earlier, later types.Amount) (bool, error) {
	switch e := earlier.(type) {
	case types.ConfidentialAmount:
		switch l := later.(type) {
		case types.ConfidentialAmount:
			gt, err := crypto.VerifyGreaterThan(e, l)
			if err != nil {
				return false, err
			}
			return gt, nil
		case types.PublicAmount:
			gt, err := crypto.VerifyGreaterThanU64(e, uint64(l))
			if err != nil {
				return false, err
			}
			return gt, nil
		default:
			return false, fmt.Errorf("unknown amount kind %T", later)
		}
	case types.PublicAmount:
		return true, nil
	default:
		return false, fmt.Errorf("unknown amount kind %T", earlier)
	}
}
