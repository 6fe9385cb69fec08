package content

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dshills/mdkb-mcp/internal/config"
	"github.com/dshills/mdkb-mcp/internal/discovery"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

// RawSource retrieves a file's raw bytes and the HTTP status of the exchange
type RawSource interface {
	Raw(ctx context.Context, owner, repo, branch, path string) (string, int, error)
}

// Fetcher retrieves document content on demand. Nothing is cached: documents
// may be edited and read back immediately.
type Fetcher struct {
	registry *config.Registry
	source   RawSource
}

// NewFetcher creates a content fetcher
func NewFetcher(registry *config.Registry, source RawSource) *Fetcher {
	return &Fetcher{registry: registry, source: source}
}

// Fetch returns the raw markdown of documentName in knowledge base kbID.
// A non-2xx answer is a DocumentNotFoundError; any other failure is
// returned wrapped with its cause.
func (f *Fetcher) Fetch(ctx context.Context, kbID, documentName string) (string, error) {
	kb, ok := f.registry.Get(kbID)
	if !ok {
		return "", &types.UnknownKnowledgeBaseError{ID: kbID}
	}

	remote, ok := RemotePath(kb, documentName)
	if !ok {
		return "", &types.DocumentNotFoundError{Name: documentName, KnowledgeBase: kb.DisplayName()}
	}

	body, status, err := f.source.Raw(ctx, kb.Owner, kb.Repo, kb.Branch, remote)
	if err != nil {
		if status == 0 || (status >= 200 && status < 300) {
			return "", fmt.Errorf("fetch %q from %q: %w", documentName, kb.DisplayName(), err)
		}
		return "", &types.DocumentNotFoundError{
			Name:          documentName,
			KnowledgeBase: kb.DisplayName(),
			Status:        status,
		}
	}
	return body, nil
}

// RemotePath joins kb's normalized scope with the document name and the
// markdown extension. It reports false when the name is empty, absolute, or
// resolves outside the scope.
func RemotePath(kb types.KnowledgeBase, documentName string) (string, bool) {
	name := path.Clean(documentName)
	if name == "." || name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
		return "", false
	}

	file := name + discovery.MarkdownExt
	scope := discovery.NormalizeScope(kb.Path)
	if scope == "" {
		return file, true
	}
	return path.Join(scope, file), true
}
