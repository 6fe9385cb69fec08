package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/mdkb-mcp/internal/cache"
	"github.com/dshills/mdkb-mcp/internal/config"
	"github.com/dshills/mdkb-mcp/internal/storage"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

// DefaultRecentScans is how many scans catalog status reports
const DefaultRecentScans = 10

// DocumentSource is the cached view of discovered documents
type DocumentSource interface {
	Documents(ctx context.Context, kbID string) []types.Document
	Refresh(ctx context.Context) map[string]int
	Snapshot() []cache.EntryInfo
	TTL() time.Duration
}

// ContentSource fetches raw document content
type ContentSource interface {
	Fetch(ctx context.Context, kbID, documentName string) (string, error)
}

// ScanHistory reports recent discovery scans
type ScanHistory interface {
	RecentScans(ctx context.Context, limit int) ([]*storage.Scan, error)
}

// Catalog implements the read-only catalog operations. Every operation
// returns a types.Result; failures are data, never panics or errors.
type Catalog struct {
	registry *config.Registry
	docs     DocumentSource
	content  ContentSource
	history  ScanHistory
}

// New creates a catalog. history may be nil.
func New(registry *config.Registry, docs DocumentSource, content ContentSource, history ScanHistory) *Catalog {
	return &Catalog{
		registry: registry,
		docs:     docs,
		content:  content,
		history:  history,
	}
}

// KnowledgeBaseCount is the name, id and document count of a knowledge base
type KnowledgeBaseCount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Documents   int    `json:"documents"`
}

// KnowledgeBases resolves the document count of every knowledge base
// concurrently and returns them in configuration order
func (c *Catalog) KnowledgeBases(ctx context.Context) []KnowledgeBaseCount {
	bases := c.registry.All()
	out := make([]KnowledgeBaseCount, len(bases))

	g, gctx := errgroup.WithContext(ctx)
	for i, kb := range bases {
		g.Go(func() error {
			out[i] = KnowledgeBaseCount{
				ID:          kb.ID,
				Name:        kb.DisplayName(),
				Description: kb.Description,
				Documents:   len(c.docs.Documents(gctx, kb.ID)),
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// ListKnowledgeBases lists every knowledge base with its document count
func (c *Catalog) ListKnowledgeBases(ctx context.Context) types.Result {
	counts := c.KnowledgeBases(ctx)
	if len(counts) == 0 {
		return types.OK("No knowledge bases configured.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available knowledge bases (%d):\n\n", len(counts))
	for _, kb := range counts {
		fmt.Fprintf(&b, "- **%s** (`%s`): %d documents\n", kb.Name, kb.ID, kb.Documents)
		if kb.Description != "" {
			fmt.Fprintf(&b, "  %s\n", kb.Description)
		}
	}
	return types.OK(b.String())
}

// ListDocuments lists documents, optionally scoped to one knowledge base,
// grouped by knowledge base
func (c *Catalog) ListDocuments(ctx context.Context, kbID string) types.Result {
	docs := c.docs.Documents(ctx, kbID)
	if len(docs) == 0 {
		if kbID != "" {
			return types.OK(fmt.Sprintf("No documents found in knowledge base %q.", kbID))
		}
		return types.OK("No documents found.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d documents:\n", len(docs))
	for _, group := range c.groupByKnowledgeBase(docs) {
		fmt.Fprintf(&b, "\n## %s (`%s`)\n\n", group.name, group.id)
		for _, d := range group.docs {
			fmt.Fprintf(&b, "- **%s**: `%s`\n", d.Title, d.Name)
		}
	}
	return types.OK(b.String())
}

// SearchDocuments matches query case-insensitively against document names
// and titles, keeping the cache's enumeration order
func (c *Catalog) SearchDocuments(ctx context.Context, query, kbID string) types.Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.Fail(types.KindInvalidArgument, "query parameter is required and cannot be empty")
	}

	matches := Search(c.docs.Documents(ctx, kbID), query)
	if len(matches) == 0 {
		return types.OK(fmt.Sprintf("No documents found matching %q.", query))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d documents matching %q:\n\n", len(matches), query)
	for _, d := range matches {
		fmt.Fprintf(&b, "- **%s** (`%s`): `%s`\n", d.Title, d.KnowledgeBase, d.Name)
	}
	return types.OK(b.String())
}

// Search filters docs to those whose name or title contains query,
// ignoring case
func Search(docs []types.Document, query string) []types.Document {
	q := strings.ToLower(query)
	var out []types.Document
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Title), q) {
			out = append(out, d)
		}
	}
	return out
}

// GetDocument returns a document's raw content verbatim
func (c *Catalog) GetDocument(ctx context.Context, kbID, documentName string) types.Result {
	if kbID == "" {
		return types.Fail(types.KindInvalidArgument, "knowledge_base parameter is required")
	}
	if documentName == "" {
		return types.Fail(types.KindInvalidArgument, "document parameter is required")
	}

	body, err := c.content.Fetch(ctx, kbID, documentName)
	if err != nil {
		return types.FailErr(err)
	}
	return types.OK(body)
}

// Refresh drops the document cache and rescans every knowledge base
func (c *Catalog) Refresh(ctx context.Context) types.Result {
	counts := c.docs.Refresh(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "Refreshed %d knowledge bases:\n\n", len(counts))
	for _, kb := range c.registry.All() {
		fmt.Fprintf(&b, "- `%s`: %d documents\n", kb.ID, counts[kb.ID])
	}
	return types.OK(b.String())
}

// Status reports cache state and recent discovery scans as JSON
func (c *Catalog) Status(ctx context.Context) types.Result {
	entries := make([]map[string]interface{}, 0)
	for _, e := range c.docs.Snapshot() {
		entry := map[string]interface{}{
			"knowledge_base": e.KnowledgeBase,
			"cached":         e.Cached,
		}
		if e.Cached {
			entry["documents"] = e.Documents
			entry["fetched_at"] = e.FetchedAt.Format(time.RFC3339)
			entry["age_seconds"] = int(e.Age.Seconds())
			entry["fresh"] = e.Fresh
		}
		entries = append(entries, entry)
	}

	response := map[string]interface{}{
		"knowledge_bases":   c.registry.Len(),
		"cache_ttl_seconds": int(c.docs.TTL().Seconds()),
		"cache":             entries,
	}

	if c.history != nil {
		scans, err := c.history.RecentScans(ctx, DefaultRecentScans)
		if err != nil {
			log.Printf("catalog: recent scans: %v", err)
		} else {
			recent := make([]map[string]interface{}, 0, len(scans))
			for _, s := range scans {
				scan := map[string]interface{}{
					"knowledge_base": s.KnowledgeBase,
					"started_at":     s.StartedAt.Format(time.RFC3339),
					"duration_ms":    s.Duration.Milliseconds(),
					"documents":      s.DocumentCount,
				}
				if !s.Succeeded() {
					scan["error"] = s.Error
				}
				recent = append(recent, scan)
			}
			response["recent_scans"] = recent
		}
	}

	return types.OK(formatJSON(response))
}

type documentGroup struct {
	id   string
	name string
	docs []types.Document
}

// groupByKnowledgeBase groups docs by knowledge base in order of first
// appearance
func (c *Catalog) groupByKnowledgeBase(docs []types.Document) []*documentGroup {
	var groups []*documentGroup
	byID := make(map[string]*documentGroup)

	for _, d := range docs {
		g, ok := byID[d.KnowledgeBase]
		if !ok {
			name := d.KnowledgeBase
			if kb, found := c.registry.Get(d.KnowledgeBase); found {
				name = kb.DisplayName()
			}
			g = &documentGroup{id: d.KnowledgeBase, name: name}
			byID[d.KnowledgeBase] = g
			groups = append(groups, g)
		}
		g.docs = append(g.docs, d)
	}
	return groups
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
