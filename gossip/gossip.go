// Package gossip is the out-of-scope-per-spec collaborator glue
// described by spec.md §4.6: after a successful admission, the engine
// hands the serialized request to the gossip layer for best-effort
// broadcast on a named topic. The gossip layer has no feedback path
// into the engine; a publish failure never rolls back admission.
package gossip

import (
	"fmt"

	"github.com/latticechain/ledgerd/log"
)

var logger = log.Module("gossip")

// Publisher is the gossip layer's input interface, per spec.md §4.6:
// publish(bytes). It has no feedback path into the engine.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// NopPublisher discards every publish. It is the default collaborator
// when no real transport is configured, keeping the ledger engine
// fully functional with gossip absent (spec.md §1 lists gossip
// transport as an out-of-scope external collaborator, interface only).
type NopPublisher struct{}

// Publish implements Publisher by discarding payload.
func (NopPublisher) Publish(topic string, payload []byte) error {
	logger.Debug("gossip disabled; dropping publish", "topic", topic, "bytes", len(payload))
	return nil
}

// LoggingPublisher wraps another Publisher and logs every publish
// attempt and its outcome, without altering admission in any way.
type LoggingPublisher struct {
	Inner Publisher
}

// Publish implements Publisher.
func (p LoggingPublisher) Publish(topic string, payload []byte) error {
	err := p.Inner.Publish(topic, payload)
	if err != nil {
		logger.Warn("gossip publish failed", "topic", topic, "error", err)
		return fmt.Errorf("gossip: publish on %q: %w", topic, err)
	}
	logger.Debug("gossip publish ok", "topic", topic, "bytes", len(payload))
	return nil
}

// TransactionTopic is the named topic admitted transactions are
// broadcast on.
const TransactionTopic = "ledger.transactions"
