package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/latticechain/ledgerd/gossip"
	"github.com/latticechain/ledgerd/ledger"
	"github.com/latticechain/ledgerd/log"
	"github.com/latticechain/ledgerd/types"
)

// admissionQueueCapacity is the bounded channel capacity from spec.md
// §4.5: "capacity >= 1000".
const admissionQueueCapacity = 1000

var rpcLog = log.Module("rpc")

// queuedItemKind distinguishes the two admission-queue item shapes
// spec.md §4.5 names: Transfer and GetBalance.
type queuedItemKind int

const (
	kindTransfer queuedItemKind = iota
	kindGetBalance
)

// queuedItem is one request carried through the admission channel,
// paired with a one-shot reply channel.
type queuedItem struct {
	kind    queuedItemKind
	req     ledger.AddTransactionRequest
	address types.Address
	reply   chan queuedResult
}

// queuedResult is the outcome delivered back through a queuedItem's
// reply channel.
type queuedResult struct {
	transferID types.TransactionHash
	balance    uint64
	height     uint32
	err        error
}

// Admission is the single-consumer task that owns the engine's write
// path. Every RPC-originated mutation flows through Admission.SubmitTransfer,
// giving each request a total admission order per node (spec.md §5:
// "Admission order = channel FIFO order").
type Admission struct {
	engine      *ledger.Engine
	publisher   gossip.Publisher
	queue       chan queuedItem
	metricsHook TransferMetricsHook
}

// TransferMetricsHook observes the outcome of every processed Transfer
// item: whether it was admitted, the ledger.Kind string on rejection
// ("" on success), and the time spent inside the engine. Set via
// SetMetricsHook; a nil hook (the default) disables observation.
type TransferMetricsHook func(admitted bool, rejectKind string, dur time.Duration)

// NewAdmission creates an Admission queue in front of engine. Run must
// be started in its own goroutine before any Submit call can complete.
// publisher receives a best-effort broadcast after every successful
// Transfer admission, per spec.md §4.6; a nil publisher disables
// gossip broadcast entirely.
func NewAdmission(engine *ledger.Engine, publisher gossip.Publisher) *Admission {
	if publisher == nil {
		publisher = gossip.NopPublisher{}
	}
	return &Admission{
		engine:    engine,
		publisher: publisher,
		queue:     make(chan queuedItem, admissionQueueCapacity),
	}
}

// Run drains the admission queue until ctx is canceled. It is the
// engine's only writer goroutine.
func (a *Admission) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-a.queue:
			a.process(item)
		}
	}
}

// SetMetricsHook installs hook to observe every processed Transfer
// item. Intended for wiring Prometheus counters/histograms from the
// node package; never used by admission logic itself.
func (a *Admission) SetMetricsHook(hook TransferMetricsHook) {
	a.metricsHook = hook
}

func (a *Admission) process(item queuedItem) {
	var result queuedResult
	switch item.kind {
	case kindTransfer:
		start := time.Now()
		id, err := a.engine.AddTransaction(item.req)
		dur := time.Since(start)
		result = queuedResult{transferID: id, err: err}
		if err == nil {
			a.broadcast(item.req)
		}
		if a.metricsHook != nil {
			a.metricsHook(err == nil, rejectKindOf(err), dur)
		}
	case kindGetBalance:
		balance, height, err := a.engine.GetBalanceAndHeight(item.address)
		result = queuedResult{balance: balance, height: height, err: err}
	default:
		result = queuedResult{err: fmt.Errorf("rpc: unknown queued item kind %d", item.kind)}
	}

	// Cancellation: if the client already dropped the reply channel's
	// receive side, this send would block forever without a buffer;
	// the channel is created with capacity 1 specifically so the
	// reply is discarded rather than admission being rolled back
	// (spec.md §4.5/§5: the transaction is still admitted).
	select {
	case item.reply <- result:
	default:
	}
}

// broadcast hands the admitted transfer request to the gossip layer.
// Its failure never affects the already-committed admission result
// (spec.md §4.6, §7: "gossip publish is best-effort and its failures
// never roll back admission").
func (a *Admission) broadcast(req ledger.AddTransactionRequest) {
	payload, err := json.Marshal(struct {
		From                  string `json:"from"`
		To                    string `json:"to"`
		TimestampMillis       int64  `json:"timestamp"`
		PreviousTransactionID string `json:"previous_transaction_id"`
	}{
		From:                  req.From.String(),
		To:                    req.To.String(),
		TimestampMillis:       req.TimestampMillis,
		PreviousTransactionID: req.PreviousTransactionID.String(),
	})
	if err != nil {
		rpcLog.Warn("gossip: failed to encode broadcast payload", "error", err)
		return
	}
	if err := a.publisher.Publish(gossip.TransactionTopic, payload); err != nil {
		rpcLog.Warn("gossip: publish failed", "error", err)
	}
}

// QueueDepth reports the number of items currently buffered in the
// admission queue. Intended for metrics collection; never used for
// admission logic itself.
func (a *Admission) QueueDepth() int {
	return len(a.queue)
}

// SubmitTransfer enqueues a Transfer item and blocks (cooperatively,
// via the channel send) until the admission queue has capacity, then
// awaits the engine's result via the item's one-shot reply channel.
func (a *Admission) SubmitTransfer(ctx context.Context, req ledger.AddTransactionRequest) (types.TransactionHash, error) {
	reply := make(chan queuedResult, 1)
	item := queuedItem{kind: kindTransfer, req: req, reply: reply}

	select {
	case a.queue <- item:
	case <-ctx.Done():
		return types.TransactionHash{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.transferID, res.err
	case <-ctx.Done():
		rpcLog.Warn("client canceled before reply; transaction remains admitted")
		return types.TransactionHash{}, ctx.Err()
	}
}

// SubmitGetBalance enqueues a GetBalance item and awaits its result.
func (a *Admission) SubmitGetBalance(ctx context.Context, addr types.Address) (uint64, uint32, error) {
	reply := make(chan queuedResult, 1)
	item := queuedItem{kind: kindGetBalance, address: addr, reply: reply}

	select {
	case a.queue <- item:
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.balance, res.height, res.err
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}
}

// rejectKindOf extracts a ledger.Kind string for metrics labeling, or
// "" for a successful (nil) result.
func rejectKindOf(err error) string {
	if err == nil {
		return ""
	}
	var ledgerErr *ledger.Error
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Kind.String()
	}
	return "internal"
}
