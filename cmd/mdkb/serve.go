package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/mdkb-mcp/internal/mcp"
	"github.com/dshills/mdkb-mcp/internal/session"
	"github.com/dshills/mdkb-mcp/internal/storage"
	"github.com/dshills/mdkb-mcp/internal/web"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over streamable HTTP",
		Long: `Serve MCP over streamable HTTP.

Examples:
  mdkb serve --addr :8080
  MDKB_AUTH_TOKEN=secret mdkb serve --config mdkb.yaml
  mdkb serve --stateless`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().Bool("stateless", false, "do not track sessions (overrides server.stateless)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stderr)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("stateless") {
		cfg.Server.Stateless, _ = cmd.Flags().GetBool("stateless")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions := session.NewRegistry(mcp.NewFactory(a.catalog, cfg.Server.Stateless))
	server := web.NewServer(cfg.Server, sessions)

	log.Printf("%s v%s starting...", mcp.ServerName, version)
	log.Printf("Build Mode: %s, Driver: %s", storage.BuildMode, storage.DriverName)
	if cfg.Server.AuthToken == "" {
		log.Printf("No auth token configured; %s is open", cfg.Server.Endpoint)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s%s (stateless=%v)", cfg.Server.Addr, cfg.Server.Endpoint, cfg.Server.Stateless)
		errChan <- server.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
		err = <-errChan
	case err = <-errChan:
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), web.ShutdownTimeout)
	defer closeCancel()
	if cerr := sessions.Close(closeCtx); cerr != nil {
		log.Printf("close sessions: %v", cerr)
	}

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
