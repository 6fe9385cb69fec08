package config

import (
	"fmt"

	"github.com/dshills/mdkb-mcp/pkg/types"
)

// Registry is the read-only set of configured knowledge bases. Order follows
// the configuration file.
type Registry struct {
	bases []types.KnowledgeBase
	index map[string]int
}

// NewRegistry builds a registry, rejecting invalid or duplicate descriptors
func NewRegistry(bases []types.KnowledgeBase) (*Registry, error) {
	r := &Registry{
		bases: make([]types.KnowledgeBase, len(bases)),
		index: make(map[string]int, len(bases)),
	}
	copy(r.bases, bases)

	for i := range r.bases {
		kb := &r.bases[i]
		if err := kb.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[kb.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKnowledgeBase, kb.ID)
		}
		r.index[kb.ID] = i
	}

	return r, nil
}

// All returns a copy of every descriptor in configuration order
func (r *Registry) All() []types.KnowledgeBase {
	out := make([]types.KnowledgeBase, len(r.bases))
	copy(out, r.bases)
	return out
}

// Get looks up a descriptor by id
func (r *Registry) Get(id string) (types.KnowledgeBase, bool) {
	i, ok := r.index[id]
	if !ok {
		return types.KnowledgeBase{}, false
	}
	return r.bases[i], true
}

// IDs returns every knowledge base id in configuration order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.bases))
	for i, kb := range r.bases {
		ids[i] = kb.ID
	}
	return ids
}

// Len returns the number of knowledge bases
func (r *Registry) Len() int {
	return len(r.bases)
}
