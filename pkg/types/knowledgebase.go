package types

import (
	"fmt"
	"strings"
)

// KnowledgeBase describes a named collection of markdown documents that lives
// under a subpath of a remote repository branch. Descriptors are built once at
// startup and never mutated.
type KnowledgeBase struct {
	ID          string `mapstructure:"id" yaml:"id" json:"id"`
	Name        string `mapstructure:"name" yaml:"name" json:"name"`
	Description string `mapstructure:"description" yaml:"description,omitempty" json:"description,omitempty"`

	// Remote location
	Owner  string `mapstructure:"owner" yaml:"owner" json:"owner"`
	Repo   string `mapstructure:"repo" yaml:"repo" json:"repo"`
	Branch string `mapstructure:"branch" yaml:"branch" json:"branch"`
	Path   string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"` // Scope inside the repo; empty means the whole repo
}

// Validate checks that the descriptor can be used for discovery
func (kb *KnowledgeBase) Validate() error {
	if strings.TrimSpace(kb.ID) == "" {
		return ErrInvalidKnowledgeBaseID
	}
	if kb.Owner == "" || kb.Repo == "" {
		return fmt.Errorf("%w: %s", ErrMissingRepository, kb.ID)
	}
	if kb.Branch == "" {
		return fmt.Errorf("%w: %s", ErrMissingBranch, kb.ID)
	}
	return nil
}

// DisplayName returns Name, falling back to ID
func (kb *KnowledgeBase) DisplayName() string {
	if kb.Name != "" {
		return kb.Name
	}
	return kb.ID
}

// Document is one markdown file discovered inside a knowledge base
type Document struct {
	Name          string `json:"name"` // Path relative to the knowledge base scope, without extension
	Title         string `json:"title"`
	Description   string `json:"description"`
	Path          string `json:"path"` // Full path inside the remote repository
	KnowledgeBase string `json:"knowledge_base"`
}
