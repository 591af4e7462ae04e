package rpc

import (
	"errors"

	"github.com/latticechain/ledgerd/ledger"
)

// mapError converts an engine or decode error into a JSON-RPC error
// code/message pair, per spec.md §7's policy: the engine's Kind is
// surfaced verbatim to the RPC consumer; non-engine errors (parse,
// transport) are handled at the HTTP layer as -32700/-32603.
func mapError(err error) *RPCError {
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return &RPCError{Code: codeForKind(lerr.Kind), Message: lerr.Error()}
	}
	return &RPCError{Code: ErrCodeInternal, Message: err.Error()}
}

// codeForKind assigns a JSON-RPC error code to each engine error kind.
// spec.md §6 only fixes -32700 (parse) and -32603 (internal); the
// remaining kinds are surfaced as identifiable, stable application
// error codes in the -32000 "server error" reserved range.
func codeForKind(k ledger.Kind) int {
	switch k {
	case ledger.KindBadRequest:
		return -32000
	case ledger.KindInvalidSignature:
		return -32001
	case ledger.KindChainBroken:
		return -32002
	case ledger.KindInvalidRangeProof:
		return -32003
	case ledger.KindInsufficientBalance:
		return -32004
	case ledger.KindStorage:
		return -32005
	default:
		return ErrCodeInternal
	}
}
