package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/mdkb-mcp/internal/session"
)

var (
	// ErrTransportClosed is returned when connecting to a closed transport
	ErrTransportClosed = errors.New("transport closed")
	// ErrTransportInUse is returned when a second server connects to a transport
	ErrTransportInUse = errors.New("transport already connected to another server")
	// ErrSessionMismatch is returned when a request names a different session
	// than the one the transport minted
	ErrSessionMismatch = errors.New("session id does not match transport")
)

// Transport is a streamable HTTP transport for one session. It doubles as
// the session id manager of the mcp-go handler it wraps, so the id it mints
// is the caller-supplied one when there is one.
type Transport struct {
	requested string
	stateless bool
	onInit    func(string)

	once sync.Once

	// done is cancelled on Close and ends every in-flight request,
	// including open GET streams
	done   context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	id      string
	server  *server.MCPServer
	handler *server.StreamableHTTPServer
	closed  bool
}

// NewTransport creates a transport. onInit is called once with the
// finalized session id; stateless transports never call it.
func NewTransport(sessionID string, stateless bool, onInit func(string)) *Transport {
	done, cancel := context.WithCancel(context.Background())
	return &Transport{
		requested: sessionID,
		stateless: stateless,
		onInit:    onInit,
		done:      done,
		cancel:    cancel,
	}
}

// ID returns the finalized session id
func (t *Transport) ID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

func (t *Transport) finalize(id string) {
	if t.stateless || id == "" {
		return
	}
	t.once.Do(func() {
		t.mu.Lock()
		t.id = id
		t.mu.Unlock()
		if t.onInit != nil {
			t.onInit(id)
		}
	})
}

// attach builds the mcp-go handler on first use
func (t *Transport) attach(srv *server.MCPServer) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if t.server != nil {
		same := t.server == srv
		t.mu.Unlock()
		if same {
			return nil
		}
		return ErrTransportInUse
	}

	var opts []server.StreamableHTTPOption
	if t.stateless {
		opts = append(opts, server.WithStateLess(true))
	} else {
		opts = append(opts, server.WithSessionIdManager(t))
	}
	t.server = srv
	t.handler = server.NewStreamableHTTPServer(srv, opts...)
	t.mu.Unlock()

	// A supplied id is adopted as soon as a server owns the transport
	t.finalize(t.requested)
	return nil
}

// ServeHTTP implements http.Handler
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.mu.RLock()
	h, closed := t.handler, t.closed
	t.mu.RUnlock()

	switch {
	case closed:
		session.WriteError(w, http.StatusNotFound, session.CodeSessionNotFound, "session terminated")
	case h == nil:
		session.WriteError(w, http.StatusInternalServerError, session.CodeInternalError, "transport not connected")
	default:
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		stop := context.AfterFunc(t.done, cancel)
		defer stop()
		h.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Close shuts the transport down and ends its in-flight requests. Closing
// twice is a no-op.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	return nil
}

// Generate implements server.SessionIdManager
func (t *Transport) Generate() string {
	if t.stateless {
		return ""
	}
	if id := t.ID(); id != "" {
		return id
	}

	id := t.requested
	if id == "" {
		id = uuid.NewString()
	}
	t.finalize(id)
	return t.ID()
}

// Validate implements server.SessionIdManager
func (t *Transport) Validate(sessionID string) (isTerminated bool, err error) {
	t.mu.RLock()
	closed, current := t.closed, t.id
	t.mu.RUnlock()

	if closed {
		return true, nil
	}
	if t.stateless || sessionID == "" {
		return false, nil
	}
	if current != "" && current != sessionID {
		return false, fmt.Errorf("%w: %s", ErrSessionMismatch, sessionID)
	}
	t.finalize(sessionID)
	return false, nil
}

// Terminate implements server.SessionIdManager. Termination is handled by
// the session registry, which closes the transport.
func (t *Transport) Terminate(sessionID string) (isNotAllowed bool, err error) {
	return false, nil
}
