package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/dshills/mdkb-mcp/pkg/types"
)

// Transport carries protocol requests for one session
type Transport interface {
	http.Handler
	Close(ctx context.Context) error
}

// Server is a protocol server bound to every catalog operation. Connect must
// be idempotent: connecting a server to the transport it is already
// connected to succeeds.
type Server interface {
	Connect(ctx context.Context, t Transport) error
}

// Factory builds fresh servers and transports
type Factory interface {
	NewServer() (Server, error)

	// NewTransport returns a transport that mints sessionID, or a generated
	// id when sessionID is empty, and calls onInit once with the finalized
	// id. Stateless transports never call onInit.
	NewTransport(sessionID string, onInit func(sessionID string)) (Transport, error)
}

// Binding pairs a transport with the server connected to it
type Binding struct {
	Transport Transport
	Server    Server

	mu sync.RWMutex
	id string
}

// ID returns the finalized session id, empty until the transport reports it
func (b *Binding) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

func (b *Binding) setID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.id = id
}

// creation is an in-flight Create for a caller-supplied id. Racing
// requests for the same id wait on done and share the winner's binding.
type creation struct {
	done    chan struct{}
	binding *Binding
	err     error
}

// Registry maps session ids to bindings. A missing binding, whether never
// created or lost with a recycled process, is indistinguishable from a
// first request.
type Registry struct {
	factory Factory

	mu       sync.Mutex
	bindings map[string]*Binding
	creating map[string]*creation
}

// NewRegistry creates an empty registry
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		bindings: make(map[string]*Binding),
		creating: make(map[string]*creation),
	}
}

// Len returns the number of stored bindings
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// Lookup returns the stored binding for id, if any
func (r *Registry) Lookup(id string) (*Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[id]
	return b, ok
}

// Resolve returns a binding ready to handle a request for sessionID. An
// existing binding is reconnected and reused; if reconnecting fails the
// binding is discarded and a new one is created in its place.
func (r *Registry) Resolve(ctx context.Context, sessionID string) (*Binding, error) {
	if sessionID != "" {
		if b, ok := r.reuse(ctx, sessionID); ok {
			return b, nil
		}
	}
	return r.create(ctx, sessionID)
}

// reuse reconnects the stored binding for sessionID
func (r *Registry) reuse(ctx context.Context, sessionID string) (*Binding, bool) {
	b, ok := r.Lookup(sessionID)
	if !ok {
		return nil, false
	}

	if err := b.Server.Connect(ctx, b.Transport); err != nil {
		log.Printf("session %s: %v: %v", sessionID, types.ErrSessionReconnectFailure, err)
		r.discard(ctx, sessionID, b)
		return nil, false
	}
	return b, true
}

// discard removes b if it is still the binding stored for sessionID and
// closes its transport
func (r *Registry) discard(ctx context.Context, sessionID string, b *Binding) {
	r.mu.Lock()
	if r.bindings[sessionID] == b {
		delete(r.bindings, sessionID)
	}
	r.mu.Unlock()

	closeTransport(ctx, sessionID, b)
}

// create builds a new binding. Creation for a caller-supplied id is atomic:
// a placeholder is registered before connecting and concurrent creators for
// the same id wait for it instead of building their own.
func (r *Registry) create(ctx context.Context, sessionID string) (*Binding, error) {
	if sessionID == "" {
		return r.build(ctx, "")
	}

	r.mu.Lock()
	if b, ok := r.bindings[sessionID]; ok {
		r.mu.Unlock()
		return b, nil
	}
	if c, ok := r.creating[sessionID]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.binding, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &creation{done: make(chan struct{})}
	r.creating[sessionID] = c
	r.mu.Unlock()

	c.binding, c.err = r.build(ctx, sessionID)
	if c.err != nil {
		r.mu.Lock()
		if r.creating[sessionID] == c {
			delete(r.creating, sessionID)
		}
		r.mu.Unlock()
	}
	close(c.done)

	return c.binding, c.err
}

// build constructs and connects a fresh server and transport
func (r *Registry) build(ctx context.Context, sessionID string) (*Binding, error) {
	srv, err := r.factory.NewServer()
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}

	b := &Binding{Server: srv}
	t, err := r.factory.NewTransport(sessionID, func(id string) {
		r.store(ctx, id, b)
	})
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	b.Transport = t

	if err := srv.Connect(ctx, t); err != nil {
		r.discard(ctx, b.ID(), b)
		return nil, fmt.Errorf("connect: %w", err)
	}
	return b, nil
}

// store records b under its finalized id. A different binding already
// stored under the same id is replaced and closed.
func (r *Registry) store(ctx context.Context, id string, b *Binding) {
	if id == "" {
		return
	}
	b.setID(id)

	r.mu.Lock()
	old := r.bindings[id]
	r.bindings[id] = b
	delete(r.creating, id)
	r.mu.Unlock()

	if old != nil && old != b {
		closeTransport(ctx, id, old)
	}
}

// settle drops a placeholder that never turned into a stored binding, which
// happens when the transport is stateless
func (r *Registry) settle(sessionID string, b *Binding) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creating[sessionID]; ok && c.binding == b {
		delete(r.creating, sessionID)
	}
}

// Terminate closes and removes the binding for sessionID. Unknown ids are a
// no-op. It reports whether a binding was removed.
func (r *Registry) Terminate(ctx context.Context, sessionID string) bool {
	r.mu.Lock()
	b, ok := r.bindings[sessionID]
	delete(r.bindings, sessionID)
	r.mu.Unlock()

	if ok {
		closeTransport(ctx, sessionID, b)
	}
	return ok
}

// Close terminates every binding
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	bindings := r.bindings
	r.bindings = make(map[string]*Binding)
	r.mu.Unlock()

	var errs []error
	for id, b := range bindings {
		if err := b.Transport.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// closeTransport closes b's transport, logging failures
func closeTransport(ctx context.Context, sessionID string, b *Binding) {
	if b == nil || b.Transport == nil {
		return
	}
	if err := b.Transport.Close(ctx); err != nil {
		log.Printf("session %s: close transport: %v", sessionID, err)
	}
}
