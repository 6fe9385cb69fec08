package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dshills/mdkb-mcp/internal/cache"
	"github.com/dshills/mdkb-mcp/internal/catalog"
	"github.com/dshills/mdkb-mcp/internal/config"
	"github.com/dshills/mdkb-mcp/internal/content"
	"github.com/dshills/mdkb-mcp/internal/discovery"
	"github.com/dshills/mdkb-mcp/internal/github"
	"github.com/dshills/mdkb-mcp/internal/storage"
)

// app holds the wired components shared by every command
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStorage
	catalog *catalog.Catalog
}

// loadConfig reads the file named by --config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newApp wires storage, the GitHub client, discovery, the cache and the
// catalog
func newApp(cfg *config.Config) (*app, error) {
	registry, err := config.NewRegistry(cfg.KnowledgeBases)
	if err != nil {
		return nil, fmt.Errorf("knowledge bases: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := github.NewClient(github.Config{
		APIURL:  cfg.GitHub.APIURL,
		RawURL:  cfg.GitHub.RawURL,
		Token:   cfg.GitHub.Token,
		Timeout: cfg.GitHub.Timeout,
	})

	discoverer := discovery.NewService(client, store)
	docs := cache.New(registry, discoverer, cfg.Cache.TTL)
	fetcher := content.NewFetcher(registry, client)

	log.Printf("Loaded %d knowledge bases: %v", registry.Len(), registry.IDs())

	return &app{
		cfg:     cfg,
		store:   store,
		catalog: catalog.New(registry, docs, fetcher, store),
	}, nil
}

// Close releases the scan log
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("close storage: %v", err)
	}
}
