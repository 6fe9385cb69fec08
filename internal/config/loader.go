package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (MDKB_SERVER_ADDR, ...)
const EnvPrefix = "MDKB"

// Load reads the configuration file at path, falling back to the project and
// global locations when path is empty, and applies environment overrides.
// The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newViper returns a viper instance seeded with defaults so that every
// scalar key can be overridden from the environment
func newViper() *viper.Viper {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.endpoint", def.Server.Endpoint)
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.stateless", def.Server.Stateless)
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", def.GitHub.APIURL)
	v.SetDefault("github.raw_url", def.GitHub.RawURL)
	v.SetDefault("github.timeout", def.GitHub.Timeout)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("storage.path", def.Storage.Path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names win over nothing, prefixed names win over both
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("server.auth_token", EnvPrefix+"_AUTH_TOKEN", EnvPrefix+"_SERVER_AUTH_TOKEN")

	return v
}

// findConfigFile returns the first existing config file, project before global
func findConfigFile() string {
	for _, p := range []string{ProjectConfigPath(), GlobalConfigPath()} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mdkb", "config.yaml")
}

// ProjectConfigPath returns the path to the project config file
func ProjectConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, "mdkb.yaml")
}
