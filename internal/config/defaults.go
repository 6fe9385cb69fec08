package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/mdkb-mcp/pkg/types"
)

const (
	// DefaultAddr is the HTTP listen address
	DefaultAddr = ":8080"
	// DefaultEndpoint is the MCP endpoint path
	DefaultEndpoint = "/mcp"
	// DefaultCacheTTL is how long a discovery result stays fresh
	DefaultCacheTTL = 5 * time.Minute
	// DefaultGitHubAPI is the tree listing host
	DefaultGitHubAPI = "https://api.github.com"
	// DefaultGitHubRaw is the raw content host
	DefaultGitHubRaw = "https://raw.githubusercontent.com"
	// DefaultStoragePath keeps scan history in memory only
	DefaultStoragePath = ":memory:"
)

// DefaultConfig returns the default configuration. It lists no knowledge
// bases; those always come from a config file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     DefaultAddr,
			Endpoint: DefaultEndpoint,
		},
		GitHub: GitHubConfig{
			APIURL:  DefaultGitHubAPI,
			RawURL:  DefaultGitHubRaw,
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		Storage: StorageConfig{
			Path: DefaultStoragePath,
		},
	}
}

// ExampleConfig returns the default configuration with a sample knowledge base
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.KnowledgeBases = []types.KnowledgeBase{
		{
			ID:          "handbook",
			Name:        "Engineering Handbook",
			Description: "Team processes and runbooks",
			Owner:       "acme",
			Repo:        "handbook",
			Branch:      "main",
			Path:        "./docs",
		},
	}
	return cfg
}

// WriteExample writes an example configuration file to path
func WriteExample(path string) error {
	data, err := yaml.Marshal(ExampleConfig())
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	header := []byte("# mdkb configuration\n# GITHUB_TOKEN and MDKB_AUTH_TOKEN override the token fields.\n")
	return os.WriteFile(path, append(header, data...), 0644)
}
