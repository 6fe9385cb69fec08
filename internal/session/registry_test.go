package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	requested string
	generated string
	stateless bool
	onInit    func(string)

	once   sync.Once
	closed atomic.Bool
	served atomic.Int32
}

func (t *fakeTransport) finalize(id string) {
	t.once.Do(func() { t.onInit(id) })
}

func (t *fakeTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.served.Add(1)
	if !t.stateless {
		id := t.requested
		if id == "" {
			id = t.generated
		}
		t.finalize(id)
		w.Header().Set(HeaderSessionID, id)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{}}`)
}

func (t *fakeTransport) Close(ctx context.Context) error {
	t.closed.Store(true)
	return nil
}

type fakeServer struct {
	connectErr error
	connects   atomic.Int32
}

func (s *fakeServer) Connect(ctx context.Context, t Transport) error {
	s.connects.Add(1)
	if s.connectErr != nil {
		return s.connectErr
	}
	ft := t.(*fakeTransport)
	if ft.closed.Load() {
		return errors.New("transport closed")
	}
	if ft.requested != "" && !ft.stateless {
		ft.finalize(ft.requested)
	}
	return nil
}

type fakeFactory struct {
	stateless  bool
	serverErr  error
	servers    atomic.Int32
	transports atomic.Int32
}

func (f *fakeFactory) NewServer() (Server, error) {
	if f.serverErr != nil {
		return nil, f.serverErr
	}
	f.servers.Add(1)
	return &fakeServer{}, nil
}

func (f *fakeFactory) NewTransport(sessionID string, onInit func(string)) (Transport, error) {
	n := f.transports.Add(1)
	return &fakeTransport{
		requested: sessionID,
		generated: fmt.Sprintf("generated-%d", n),
		stateless: f.stateless,
		onInit:    onInit,
	}, nil
}

func post(t *testing.T, h http.Handler, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegistry_GeneratesSessionID(t *testing.T) {
	reg := NewRegistry(&fakeFactory{})

	rec := post(t, reg, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "generated-1", rec.Header().Get(HeaderSessionID))

	b, ok := reg.Lookup("generated-1")
	require.True(t, ok)
	assert.Equal(t, "generated-1", b.ID())
}

func TestRegistry_ResumeReusesBinding(t *testing.T) {
	factory := &fakeFactory{}
	reg := NewRegistry(factory)
	ctx := context.Background()

	first, err := reg.Resolve(ctx, "abc")
	require.NoError(t, err)
	second, err := reg.Resolve(ctx, "abc")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), factory.servers.Load())
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, int32(2), first.Server.(*fakeServer).connects.Load(), "reconnect is idempotent")
}

func TestRegistry_AdoptsUnknownSessionID(t *testing.T) {
	reg := NewRegistry(&fakeFactory{})

	rec := post(t, reg, "issued-by-a-previous-process")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "issued-by-a-previous-process", rec.Header().Get(HeaderSessionID))

	b, ok := reg.Lookup("issued-by-a-previous-process")
	require.True(t, ok)
	assert.Equal(t, int32(1), b.Transport.(*fakeTransport).served.Load())
}

func TestRegistry_ReconnectFailureCreatesFreshBinding(t *testing.T) {
	factory := &fakeFactory{}
	reg := NewRegistry(factory)
	ctx := context.Background()

	stale, err := reg.Resolve(ctx, "abc")
	require.NoError(t, err)
	stale.Server.(*fakeServer).connectErr = errors.New("already connected elsewhere")

	fresh, err := reg.Resolve(ctx, "abc")
	require.NoError(t, err)

	assert.NotSame(t, stale, fresh)
	assert.True(t, stale.Transport.(*fakeTransport).closed.Load())
	assert.Equal(t, "abc", fresh.ID())

	stored, ok := reg.Lookup("abc")
	require.True(t, ok)
	assert.Same(t, fresh, stored)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_ConcurrentCreatesShareOneBinding(t *testing.T) {
	factory := &fakeFactory{}
	reg := NewRegistry(factory)
	ctx := context.Background()

	const workers = 32
	results := make([]*Binding, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			b, err := reg.Resolve(ctx, "race")
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), factory.transports.Load(), "no orphaned transports")
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Terminate(t *testing.T) {
	reg := NewRegistry(&fakeFactory{})
	ctx := context.Background()

	b, err := reg.Resolve(ctx, "abc")
	require.NoError(t, err)

	del := func(id string) int {
		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		req.Header.Set(HeaderSessionID, id)
		rec := httptest.NewRecorder()
		reg.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, del("abc"))
	assert.True(t, b.Transport.(*fakeTransport).closed.Load())
	assert.Equal(t, 0, reg.Len())

	assert.Equal(t, http.StatusOK, del("abc"), "terminate is idempotent")
	assert.Equal(t, http.StatusOK, del("never-existed"))
	assert.False(t, reg.Terminate(ctx, "abc"))
}

func TestRegistry_StatelessStoresNothing(t *testing.T) {
	factory := &fakeFactory{stateless: true}
	reg := NewRegistry(factory)

	rec := post(t, reg, "abc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderSessionID))
	assert.Equal(t, 0, reg.Len())

	reg.mu.Lock()
	assert.Empty(t, reg.creating)
	reg.mu.Unlock()

	post(t, reg, "abc")
	assert.Equal(t, int32(2), factory.transports.Load())
}

func TestRegistry_GetRequiresKnownSession(t *testing.T) {
	reg := NewRegistry(&fakeFactory{})

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set(HeaderSessionID, "unknown")
	rec := httptest.NewRecorder()
	reg.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeSessionNotFound, body.Error.Code)

	req = httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec = httptest.NewRecorder()
	reg.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistry_GetStreamsExistingSession(t *testing.T) {
	reg := NewRegistry(&fakeFactory{})
	b, err := reg.Resolve(context.Background(), "abc")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set(HeaderSessionID, "abc")
	rec := httptest.NewRecorder()
	reg.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), b.Transport.(*fakeTransport).served.Load())
}

func TestRegistry_FactoryFailure(t *testing.T) {
	reg := NewRegistry(&fakeFactory{serverErr: errors.New("boom")})

	rec := post(t, reg, "abc")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, reg.Len())

	reg.mu.Lock()
	assert.Empty(t, reg.creating)
	reg.mu.Unlock()
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry(&fakeFactory{})
	ctx := context.Background()

	a, err := reg.Resolve(ctx, "a")
	require.NoError(t, err)
	b, err := reg.Resolve(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, reg.Close(ctx))
	assert.Equal(t, 0, reg.Len())
	assert.True(t, a.Transport.(*fakeTransport).closed.Load())
	assert.True(t, b.Transport.(*fakeTransport).closed.Load())
}
