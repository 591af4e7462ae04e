package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/cors"

	"github.com/latticechain/ledgerd/ledger"
	"github.com/latticechain/ledgerd/types"
)

// Server is the JSON-RPC HTTP front end. It never touches the ledger
// engine directly (spec.md §4.5): every mutating or balance-reading
// call is dispatched through the Admission queue, and every read-only
// call (getTransaction, listTransactionIds) goes straight to the
// engine's read snapshot since it cannot affect admission order.
type Server struct {
	admission *Admission
	engine    *ledger.Engine
	feed      *Feed
	mux       *http.ServeMux
}

// NewServer creates a JSON-RPC server dispatching through admission
// for mutating/ordered calls and engine for read-only calls.
func NewServer(admission *Admission, engine *ledger.Engine, feed *Feed) *Server {
	s := &Server{admission: admission, engine: engine, feed: feed, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleRPC)
	s.mux.HandleFunc("/ws", feed.HandleWebSocket)
	return s
}

// Handler returns the HTTP handler for the server, wrapped in a
// permissive CORS policy (the teacher's own rpc package wires
// gorilla/websocket and a CORS middleware the same way).
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.mux)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRPCError(w, http.StatusBadRequest, nil, ErrCodeParse, "failed to read request body")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPCError(w, http.StatusBadRequest, nil, ErrCodeParse, "invalid JSON")
		return
	}

	result, rpcErr := s.dispatch(r.Context(), &req)
	if rpcErr != nil {
		status := http.StatusInternalServerError
		if rpcErr.Code == ErrCodeParse {
			status = http.StatusBadRequest
		}
		writeRPCError(w, status, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, &Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *RPCError) {
	switch req.Method {
	case "submitTransaction":
		return s.handleSubmitTransaction(ctx, req)
	case "addressBalance":
		return s.handleAddressBalance(ctx, req)
	case "getTransaction":
		return s.handleGetTransaction(req)
	case "listTransactionIds":
		return s.handleListTransactionIds(req)
	default:
		return nil, &RPCError{Code: ErrCodeParse, Message: "unknown method: " + req.Method}
	}
}

func (s *Server) handleSubmitTransaction(ctx context.Context, req *Request) (interface{}, *RPCError) {
	var params []TransactionRequest
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
		return nil, &RPCError{Code: ErrCodeParse, Message: "submitTransaction requires a single-element params array"}
	}

	addReq, err := toAddTransactionRequest(&params[0])
	if err != nil {
		return nil, &RPCError{Code: ErrCodeParse, Message: err.Error()}
	}

	id, err := s.admission.SubmitTransfer(ctx, addReq)
	if err != nil {
		return nil, mapError(err)
	}

	if s.feed != nil {
		s.feed.NotifyConfirmed(id)
	}

	return hex.EncodeToString(id[:]), nil
}

func (s *Server) handleAddressBalance(ctx context.Context, req *Request) (interface{}, *RPCError) {
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
		return nil, &RPCError{Code: ErrCodeParse, Message: "addressBalance requires a single hex address string"}
	}

	addr, err := types.AddressFromHex(params[0])
	if err != nil {
		return nil, &RPCError{Code: ErrCodeParse, Message: err.Error()}
	}

	balance, _, err := s.admission.SubmitGetBalance(ctx, addr)
	if err != nil {
		return nil, mapError(err)
	}

	return decimalString(balance), nil
}

func (s *Server) handleGetTransaction(req *Request) (interface{}, *RPCError) {
	var params []struct {
		Address string `json:"address"`
		Height  uint64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) != 1 {
		return nil, &RPCError{Code: ErrCodeParse, Message: "getTransaction requires {address, height}"}
	}

	addr, err := types.AddressFromHex(params[0].Address)
	if err != nil {
		return nil, &RPCError{Code: ErrCodeParse, Message: err.Error()}
	}

	record, err := s.engine.GetTransaction(addr, params[0].Height)
	if err != nil {
		return nil, mapError(err)
	}

	id, err := record.Transaction.CalculateID()
	if err != nil {
		return nil, mapError(err)
	}

	return map[string]interface{}{
		"id":     id.String(),
		"from":   record.Transaction.From.String(),
		"to":     record.Transaction.To.String(),
		"status": record.Status.String(),
	}, nil
}

func (s *Server) handleListTransactionIds(req *Request) (interface{}, *RPCError) {
	ids, err := s.engine.ListIDs()
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRPCError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string) {
	writeJSON(w, status, &Response{
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: message},
		ID:      id,
	})
}

func decimalString(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
