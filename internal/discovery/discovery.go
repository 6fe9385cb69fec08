package discovery

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/mdkb-mcp/internal/github"
	"github.com/dshills/mdkb-mcp/internal/storage"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

// MarkdownExt is the only extension treated as a document
const MarkdownExt = ".md"

// TreeSource lists a repository's recursive file tree
type TreeSource interface {
	Tree(ctx context.Context, owner, repo, branch string) ([]github.TreeEntry, error)
}

// ScanRecorder receives the outcome of every discovery scan
type ScanRecorder interface {
	RecordScan(ctx context.Context, scan *storage.Scan) error
}

// Service turns a knowledge base descriptor into documents
type Service struct {
	source   TreeSource
	recorder ScanRecorder
	now      func() time.Time
}

// NewService creates a discovery service. recorder may be nil.
func NewService(source TreeSource, recorder ScanRecorder) *Service {
	return &Service{
		source:   source,
		recorder: recorder,
		now:      time.Now,
	}
}

// Discover performs one scan of kb's remote tree. On any failure the failure
// is logged and recorded, and an empty list is returned together with an
// error wrapping types.ErrDiscoveryFailure; callers that only want the list
// may ignore the error.
func (s *Service) Discover(ctx context.Context, kb types.KnowledgeBase) ([]types.Document, error) {
	started := s.now()

	entries, err := s.source.Tree(ctx, kb.Owner, kb.Repo, kb.Branch)
	if err != nil {
		log.Printf("discovery: %s: %v", kb.ID, err)
		s.record(ctx, kb.ID, started, 0, err)
		return []types.Document{}, fmt.Errorf("%w: %s: %v", types.ErrDiscoveryFailure, kb.ID, err)
	}

	docs := Documents(kb, entries)
	s.record(ctx, kb.ID, started, len(docs), nil)
	return docs, nil
}

func (s *Service) record(ctx context.Context, kbID string, started time.Time, count int, scanErr error) {
	if s.recorder == nil {
		return
	}

	scan := &storage.Scan{
		KnowledgeBase: kbID,
		StartedAt:     started,
		Duration:      s.now().Sub(started),
		DocumentCount: count,
	}
	if scanErr != nil {
		scan.Error = scanErr.Error()
	}

	if err := s.recorder.RecordScan(ctx, scan); err != nil {
		log.Printf("discovery: record scan for %s: %v", kbID, err)
	}
}

// Documents maps tree entries onto documents, keeping markdown files inside
// kb's scope in enumeration order
func Documents(kb types.KnowledgeBase, entries []github.TreeEntry) []types.Document {
	scope := NormalizeScope(kb.Path)
	docs := make([]types.Document, 0, len(entries))

	for _, entry := range entries {
		if entry.Type != github.TypeBlob || !strings.HasSuffix(entry.Path, MarkdownExt) {
			continue
		}

		rel, ok := relativeTo(scope, entry.Path)
		if !ok {
			continue
		}

		name := strings.TrimSuffix(rel, MarkdownExt)
		title := FormatTitle(path.Base(name))
		docs = append(docs, types.Document{
			Name:          name,
			Title:         title,
			Description:   fmt.Sprintf("%s from %s", title, kb.DisplayName()),
			Path:          entry.Path,
			KnowledgeBase: kb.ID,
		})
	}

	return docs
}

// relativeTo returns p relative to scope, or false when p lies outside it
func relativeTo(scope, p string) (string, bool) {
	if scope == "" {
		return p, true
	}
	if !strings.HasPrefix(p, scope+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, scope+"/"), true
}

// NormalizeScope cleans a configured subpath: "./vision/" becomes "vision"
// and "", "." and "/" all mean the whole repository
func NormalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return ""
	}
	scope = path.Clean("/" + scope)
	return strings.Trim(scope, "/")
}

// FormatTitle turns a hyphenated file name into a title:
// "merchant-enlil-bani" becomes "Merchant Enlil Bani"
func FormatTitle(name string) string {
	words := strings.Split(name, "-")
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		out = append(out, string(unicode.ToUpper(r))+w[size:])
	}
	return strings.Join(out, " ")
}
