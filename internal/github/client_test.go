package github

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Multiplier: 2,
	}
}

func newTestClient(srv *httptest.Server, token string) *Client {
	return NewClient(Config{
		APIURL: srv.URL,
		RawURL: srv.URL + "/raw",
		Token:  token,
		Retry:  fastRetry(),
	})
}

func TestTree(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"sha":"abc","tree":[
			{"path":"docs","type":"tree"},
			{"path":"docs/a.md","type":"blob","size":12}
		],"truncated":false}`)
	}))
	defer srv.Close()

	entries, err := newTestClient(srv, "secret").Tree(context.Background(), "acme", "handbook", "main")
	require.NoError(t, err)

	assert.Equal(t, "/repos/acme/handbook/git/trees/main", gotPath)
	assert.Equal(t, "recursive=1", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)

	require.Len(t, entries, 2)
	assert.Equal(t, TypeTree, entries[0].Type)
	assert.Equal(t, "docs/a.md", entries[1].Path)
	assert.Equal(t, int64(12), entries[1].Size)
}

func TestTree_TruncatedListingLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"abc","tree":[{"path":"a.md","type":"blob"}],"truncated":true}`)
	}))
	defer srv.Close()

	entries, err := newTestClient(srv, "").Tree(context.Background(), "acme", "handbook", "main")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "partial listing is still returned")
	assert.Contains(t, buf.String(), "truncated")
	assert.Contains(t, buf.String(), "/repos/acme/handbook/git/trees/main")

	complete := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"abc","tree":[],"truncated":false}`)
	}))
	defer complete.Close()

	buf.Reset()
	_, err = newTestClient(complete, "").Tree(context.Background(), "acme", "handbook", "main")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "truncated")
}

func TestTree_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"tree":[]}`)
	}))
	defer srv.Close()

	entries, err := newTestClient(srv, "").Tree(context.Background(), "acme", "handbook", "main")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTree_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{name: "not found is permanent", status: http.StatusNotFound, body: `{"message":"Not Found"}`, wantCalls: 1},
		{name: "server error is retried", status: http.StatusBadGateway, body: "bad gateway", wantCalls: 3},
		{name: "rate limit is retried", status: http.StatusTooManyRequests, body: "slow down", wantCalls: 3},
		{name: "malformed body", status: http.StatusOK, body: "{not json", wantCalls: 1},
		{name: "missing tree", status: http.StatusOK, body: `{"sha":"abc"}`, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv, "").Tree(context.Background(), "acme", "handbook", "main")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTreeRequestFailed)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestTree_RecoversAfterTransientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"tree":[{"path":"a.md","type":"blob"}]}`)
	}))
	defer srv.Close()

	entries, err := newTestClient(srv, "").Tree(context.Background(), "acme", "handbook", "main")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "raw content needs no credential")
		switch r.URL.Path {
		case "/raw/acme/handbook/main/docs/notes/a.md":
			fmt.Fprint(w, "# A\n\nbody")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv, "secret")

	body, status, err := client.Raw(context.Background(), "acme", "handbook", "main", "docs/notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "# A\n\nbody", body)

	_, status, err = client.Raw(context.Background(), "acme", "handbook", "main", "docs/missing.md")
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := retryWithBackoff(ctx, fastRetry(), func() (int, error) {
		calls++
		return 0, fmt.Errorf("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "docs/my%20notes/a.md", escapePath("docs/my notes/a.md"))
	assert.Equal(t, "a.md", escapePath("a.md"))
}
