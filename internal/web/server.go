package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/mdkb-mcp/internal/config"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server
const ShutdownTimeout = 10 * time.Second

// SessionHandler serves the protocol endpoint
type SessionHandler interface {
	http.Handler
	Len() int
}

// Server hosts the protocol endpoint over HTTP
type Server struct {
	cfg      config.ServerConfig
	sessions SessionHandler
	router   *gin.Engine
}

// NewServer creates a new web server
func NewServer(cfg config.ServerConfig, sessions SessionHandler) *Server {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultEndpoint
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(os.Stderr), gin.Recovery())

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		router:   router,
	}

	router.GET("/healthz", s.handleHealth)

	// Protocol routes
	protocol := router.Group(cfg.Endpoint, AuthMiddleware(cfg.AuthToken))
	{
		protocol.POST("", s.handleProtocol)
		protocol.GET("", s.handleProtocol)
		protocol.DELETE("", s.handleProtocol)
		protocol.OPTIONS("", s.handlePreflight)
	}

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleProtocol(c *gin.Context) {
	s.sessions.ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handlePreflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Mcp-Session-Id")
	c.Header("Access-Control-Expose-Headers", "Mcp-Session-Id")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
