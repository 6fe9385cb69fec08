package session

import (
	"encoding/json"
	"log"
	"net/http"
)

// HeaderSessionID carries the session id on requests and responses
const HeaderSessionID = "Mcp-Session-Id"

// JSON-RPC error codes used outside the protocol server
const (
	CodeInvalidRequest  = -32600
	CodeInternalError   = -32603
	CodeUnauthorized    = -32001
	CodeSessionNotFound = -32002
)

// ServeHTTP routes one request on the protocol endpoint. POST resolves or
// creates the session's binding, GET reattaches an existing stream and
// DELETE terminates the session.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	sessionID := req.Header.Get(HeaderSessionID)

	switch req.Method {
	case http.MethodDelete:
		if sessionID != "" {
			r.Terminate(ctx, sessionID)
		}
		w.WriteHeader(http.StatusOK)
		return

	case http.MethodGet:
		if sessionID == "" {
			WriteError(w, http.StatusBadRequest, CodeInvalidRequest, HeaderSessionID+" header is required")
			return
		}
		b, ok := r.reuse(ctx, sessionID)
		if !ok {
			WriteError(w, http.StatusNotFound, CodeSessionNotFound, "session not found")
			return
		}
		b.Transport.ServeHTTP(w, req)
		return
	}

	b, err := r.Resolve(ctx, sessionID)
	if err != nil {
		log.Printf("session %q: resolve: %v", sessionID, err)
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "failed to create session")
		return
	}
	defer r.settle(sessionID, b)

	if id := b.ID(); id != "" {
		w.Header().Set(HeaderSessionID, id)
	}
	b.Transport.ServeHTTP(w, req)
}

// WriteError writes a JSON-RPC error response with a null id
func WriteError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}
