package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/mdkb-mcp/pkg/types"
)

var (
	// ErrNoKnowledgeBases is returned when the configuration lists no knowledge bases
	ErrNoKnowledgeBases = errors.New("at least one knowledge base must be configured")
	// ErrDuplicateKnowledgeBase is returned when two descriptors share an id
	ErrDuplicateKnowledgeBase = errors.New("duplicate knowledge base id")
)

// Config is the complete server configuration
type Config struct {
	Server         ServerConfig          `mapstructure:"server" yaml:"server"`
	GitHub         GitHubConfig          `mapstructure:"github" yaml:"github"`
	Cache          CacheConfig           `mapstructure:"cache" yaml:"cache"`
	Storage        StorageConfig         `mapstructure:"storage" yaml:"storage"`
	KnowledgeBases []types.KnowledgeBase `mapstructure:"knowledge_bases" yaml:"knowledge_bases"`
}

// ServerConfig controls the HTTP transport
type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token,omitempty"`
	Stateless bool   `mapstructure:"stateless" yaml:"stateless"`
}

// GitHubConfig controls access to the remote repository host
type GitHubConfig struct {
	Token   string        `mapstructure:"token" yaml:"token,omitempty"`
	APIURL  string        `mapstructure:"api_url" yaml:"api_url"`
	RawURL  string        `mapstructure:"raw_url" yaml:"raw_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CacheConfig controls the document cache
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// StorageConfig controls the scan history database
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if len(c.KnowledgeBases) == 0 {
		return ErrNoKnowledgeBases
	}

	seen := make(map[string]bool, len(c.KnowledgeBases))
	for i := range c.KnowledgeBases {
		kb := &c.KnowledgeBases[i]
		if err := kb.Validate(); err != nil {
			return fmt.Errorf("knowledge base %d: %w", i, err)
		}
		if seen[kb.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateKnowledgeBase, kb.ID)
		}
		seen[kb.ID] = true
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}

	return nil
}
