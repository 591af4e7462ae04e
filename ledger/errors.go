package ledger

import "fmt"

// Kind is one of the seven stable error kinds spec.md §7 requires the
// engine to surface verbatim to its caller.
type Kind int

const (
	KindBadRequest Kind = iota
	KindInvalidSignature
	KindChainBroken
	KindInvalidRangeProof
	KindInsufficientBalance
	KindStorage
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindChainBroken:
		return "ChainBroken"
	case KindInvalidRangeProof:
		return "InvalidRangeProof"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindStorage:
		return "Storage"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the engine's sealed error type. The engine never retries;
// it constructs one of these and returns it verbatim. The RPC layer
// maps Kind onto a JSON-RPC error object (see rpc/errors.go).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
