package cache

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/mdkb-mcp/internal/config"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

const (
	// DefaultTTL is how long a discovery result is served without rescanning
	DefaultTTL = 5 * time.Minute
	// ScanTimeout bounds one shared discovery scan
	ScanTimeout = time.Minute
)

// Discoverer scans one knowledge base
type Discoverer interface {
	Discover(ctx context.Context, kb types.KnowledgeBase) ([]types.Document, error)
}

// entry is an immutable snapshot; it is replaced, never edited
type entry struct {
	docs      []types.Document
	fetchedAt time.Time
}

// EntryInfo describes the cached state of one knowledge base
type EntryInfo struct {
	KnowledgeBase string
	Cached        bool
	Documents     int
	FetchedAt     time.Time
	Age           time.Duration
	Fresh         bool
}

// Cache serves discovery results per knowledge base with a TTL. When a
// refresh fails the previous snapshot is served instead of an empty list.
type Cache struct {
	registry   *config.Registry
	discoverer Discoverer
	ttl        time.Duration
	now        func() time.Time

	entries *lru.Cache[string, *entry]
	group   singleflight.Group // Concurrent misses for one knowledge base share a scan
}

// New creates a document cache over every knowledge base in registry
func New(registry *config.Registry, discoverer Discoverer, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	size := registry.Len()
	if size < 1 {
		size = 1
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Cache{
		registry:   registry,
		discoverer: discoverer,
		ttl:        ttl,
		now:        time.Now,
		entries:    entries,
	}
}

// TTL returns the freshness window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Documents returns the documents of one knowledge base, or of every
// knowledge base when kbID is empty. Unknown ids yield an empty list. The
// combined list follows configuration order, and each knowledge base keeps
// the remote tree's enumeration order.
func (c *Cache) Documents(ctx context.Context, kbID string) []types.Document {
	if kbID != "" {
		kb, ok := c.registry.Get(kbID)
		if !ok {
			return []types.Document{}
		}
		return c.documentsFor(ctx, kb)
	}

	bases := c.registry.All()
	results := make([][]types.Document, len(bases))

	g, gctx := errgroup.WithContext(ctx)
	for i, kb := range bases {
		g.Go(func() error {
			results[i] = c.documentsFor(gctx, kb)
			return nil
		})
	}
	_ = g.Wait() // documentsFor never fails

	var total int
	for _, r := range results {
		total += len(r)
	}
	all := make([]types.Document, 0, total)
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// Count returns the number of documents in one knowledge base
func (c *Cache) Count(ctx context.Context, kbID string) int {
	return len(c.Documents(ctx, kbID))
}

func (c *Cache) documentsFor(ctx context.Context, kb types.KnowledgeBase) []types.Document {
	if e, ok := c.entries.Get(kb.ID); ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return slices.Clone(e.docs)
	}

	return c.scan(ctx, kb)
}

// scan joins or starts the shared scan for kb. The scan runs detached from
// any one caller, so a caller that goes away only stops waiting; it never
// cancels the scan other callers are waiting on.
func (c *Cache) scan(ctx context.Context, kb types.KnowledgeBase) []types.Document {
	ch := c.group.DoChan(kb.ID, func() (interface{}, error) {
		scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ScanTimeout)
		defer cancel()
		return c.refresh(scanCtx, kb), nil
	})

	select {
	case res := <-ch:
		return slices.Clone(res.Val.([]types.Document))
	case <-ctx.Done():
		if stale, ok := c.entries.Peek(kb.ID); ok {
			return slices.Clone(stale.docs)
		}
		return []types.Document{}
	}
}

// refresh rescans kb and publishes the result, falling back to the stale
// snapshot when the scan fails
func (c *Cache) refresh(ctx context.Context, kb types.KnowledgeBase) []types.Document {
	docs, err := c.discoverer.Discover(ctx, kb)
	if err != nil {
		if stale, ok := c.entries.Peek(kb.ID); ok {
			log.Printf("cache: %s: refresh failed, serving %d stale documents from %s",
				kb.ID, len(stale.docs), stale.fetchedAt.Format(time.RFC3339))
			return stale.docs
		}
		return []types.Document{}
	}

	if docs == nil {
		docs = []types.Document{}
	}
	c.entries.Add(kb.ID, &entry{docs: docs, fetchedAt: c.now()})
	return docs
}

// Refresh drops every entry and rescans all knowledge bases immediately,
// bypassing the TTL. It returns the document count per knowledge base.
func (c *Cache) Refresh(ctx context.Context) map[string]int {
	c.entries.Purge()

	bases := c.registry.All()
	counts := make([]int, len(bases))

	g, gctx := errgroup.WithContext(ctx)
	for i, kb := range bases {
		g.Go(func() error {
			// Do not join a scan that started before the purge
			c.group.Forget(kb.ID)
			counts[i] = len(c.scan(gctx, kb))
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]int, len(bases))
	for i, kb := range bases {
		out[kb.ID] = counts[i]
	}
	return out
}

// Snapshot reports the cached state of every knowledge base in configuration
// order without triggering discovery
func (c *Cache) Snapshot() []EntryInfo {
	now := c.now()
	bases := c.registry.All()
	infos := make([]EntryInfo, len(bases))

	for i, kb := range bases {
		info := EntryInfo{KnowledgeBase: kb.ID}
		if e, ok := c.entries.Peek(kb.ID); ok {
			info.Cached = true
			info.Documents = len(e.docs)
			info.FetchedAt = e.fetchedAt
			info.Age = now.Sub(e.fetchedAt)
			info.Fresh = info.Age < c.ttl
		}
		infos[i] = info
	}
	return infos
}
