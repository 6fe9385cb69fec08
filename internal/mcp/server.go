package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/mdkb-mcp/internal/catalog"
	"github.com/dshills/mdkb-mcp/internal/session"
)

const (
	// ServerName is the MCP server name
	ServerName = "mdkb-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// KnowledgeBasesURI is the resource listing every knowledge base
	KnowledgeBasesURI = "kb://knowledge-bases"
)

// ErrUnsupportedTransport is returned when connecting to a transport not
// built by this package
var ErrUnsupportedTransport = errors.New("unsupported transport")

const instructions = "Read-only access to markdown knowledge bases hosted on GitHub. " +
	"Call list_knowledge_bases first, then list_documents or search_documents to find " +
	"a document name, and get_document to read it."

// Server wraps the MCP server with the catalog it exposes
type Server struct {
	mcp     *server.MCPServer
	catalog *catalog.Catalog
}

// NewServer creates a protocol server with every operation registered
func NewServer(c *catalog.Catalog) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s := &Server{
		mcp:     mcpServer,
		catalog: c,
	}
	s.registerTools()
	s.registerResources()

	return s
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Connect attaches the server to a transport built by NewTransport.
// Reconnecting to the same transport is a no-op.
func (s *Server) Connect(ctx context.Context, t session.Transport) error {
	tr, ok := t.(*Transport)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedTransport, t)
	}
	return tr.attach(s.mcp)
}

// Serve runs the server on stdio and blocks until the client disconnects
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers the whole operation table
func (s *Server) registerTools() {
	for _, op := range Operations {
		s.mcp.AddTool(op.Tool, s.toolHandler(op))
	}
}

// registerResources registers the knowledge base listing resource
func (s *Server) registerResources() {
	s.mcp.AddResource(knowledgeBasesResource(), s.handleKnowledgeBases)
}

// knowledgeBasesResource returns the resource definition for the knowledge
// base listing
func knowledgeBasesResource() mcp.Resource {
	return mcp.NewResource(
		KnowledgeBasesURI,
		"Knowledge Bases",
		mcp.WithResourceDescription("Configured knowledge bases with their document counts"),
		mcp.WithMIMEType("application/json"),
	)
}

// handleKnowledgeBases returns the knowledge base listing as JSON
func (s *Server) handleKnowledgeBases(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.catalog.KnowledgeBases(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling knowledge bases: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// Factory builds a fresh server and transport for every session
type Factory struct {
	catalog   *catalog.Catalog
	stateless bool
}

// NewFactory creates a session factory. Stateless factories build
// transports that never mint a session id.
func NewFactory(c *catalog.Catalog, stateless bool) *Factory {
	return &Factory{catalog: c, stateless: stateless}
}

// NewServer implements session.Factory
func (f *Factory) NewServer() (session.Server, error) {
	return NewServer(f.catalog), nil
}

// NewTransport implements session.Factory
func (f *Factory) NewTransport(sessionID string, onInit func(string)) (session.Transport, error) {
	return NewTransport(sessionID, f.stateless, onInit), nil
}
