package rpc

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/latticechain/ledgerd/types"
)

// Feed is the outbound, best-effort push channel for newly-confirmed
// transaction ids (SPEC_FULL.md §2.3's newConfirmedTransactions
// subscription). It has no feedback path into the engine, mirroring
// the gossip collaborator's one-way publish interface from spec.md
// §4.6 — a subscriber disconnecting or falling behind never affects
// admission.
type Feed struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*feedSubscriber]struct{}
}

type feedSubscriber struct {
	conn *websocket.Conn
	send chan types.TransactionHash
}

// NewFeed creates an empty subscription feed.
func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[*feedSubscriber]struct{}),
	}
}

// HandleWebSocket upgrades an HTTP connection to a WebSocket and
// streams newly-confirmed transaction ids to it until it disconnects.
func (f *Feed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rpcLog.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &feedSubscriber{conn: conn, send: make(chan types.TransactionHash, 64)}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
		conn.Close()
	}()

	for id := range sub.send {
		msg, _ := json.Marshal(map[string]string{"id": id.String()})
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// NotifyConfirmed fans out a confirmed transaction id to every
// connected subscriber. If a subscriber's send buffer is full, the id
// is dropped for that subscriber rather than allowed to block the
// notifier; the subscriber stays connected. This follows the
// "best-effort, no feedback" rule spec.md §4.6 applies to outbound
// broadcast in general.
func (f *Feed) NotifyConfirmed(id types.TransactionHash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		select {
		case sub.send <- id:
		default:
			rpcLog.Warn("dropping notification for slow feed subscriber")
		}
	}
}
