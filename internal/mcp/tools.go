package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/mdkb-mcp/internal/catalog"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

// Tool names
const (
	ToolListKnowledgeBases = "list_knowledge_bases"
	ToolListDocuments      = "list_documents"
	ToolSearchDocuments    = "search_documents"
	ToolGetDocument        = "get_document"
	ToolRefreshDocuments   = "refresh_documents"
	ToolCatalogStatus      = "catalog_status"
)

// Argument names
const (
	ArgKnowledgeBase = "knowledge_base"
	ArgQuery         = "query"
	ArgDocument      = "document"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// Handler runs one catalog operation with the decoded tool arguments
type Handler func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result

// Operation pairs a tool definition with its handler
type Operation struct {
	Tool   mcp.Tool
	Handle Handler
}

// Operations is every tool the server exposes. Each protocol server built
// by the factory registers the whole table.
var Operations = []Operation{
	{
		Tool: listKnowledgeBasesTool(),
		Handle: func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result {
			return c.ListKnowledgeBases(ctx)
		},
	},
	{
		Tool: listDocumentsTool(),
		Handle: func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result {
			return c.ListDocuments(ctx, getStringDefault(args, ArgKnowledgeBase, ""))
		},
	},
	{
		Tool: searchDocumentsTool(),
		Handle: func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result {
			return c.SearchDocuments(ctx,
				getStringDefault(args, ArgQuery, ""),
				getStringDefault(args, ArgKnowledgeBase, ""),
			)
		},
	},
	{
		Tool: getDocumentTool(),
		Handle: func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result {
			return c.GetDocument(ctx,
				getStringDefault(args, ArgKnowledgeBase, ""),
				getStringDefault(args, ArgDocument, ""),
			)
		},
	},
	{
		Tool: refreshDocumentsTool(),
		Handle: func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result {
			return c.Refresh(ctx)
		},
	},
	{
		Tool: catalogStatusTool(),
		Handle: func(ctx context.Context, c *catalog.Catalog, args map[string]interface{}) types.Result {
			return c.Status(ctx)
		},
	},
}

// Lookup returns the operation registered under a tool name
func Lookup(name string) (Operation, bool) {
	for _, op := range Operations {
		if op.Tool.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// toolHandler adapts an operation to the mcp-go handler signature
func (s *Server) toolHandler(op Operation) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := arguments(request)
		if err != nil {
			return nil, err
		}
		return toolResult(op.Handle(ctx, s.catalog, args)), nil
	}
}

// toolResult converts an operation result. Error kinds become error
// results the client can read, not protocol errors.
func toolResult(r types.Result) *mcp.CallToolResult {
	if r.IsError() {
		return mcp.NewToolResultError(r.Message)
	}
	return mcp.NewToolResultText(r.Text)
}

// arguments extracts the argument object, treating absent arguments as empty
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	switch args := request.Params.Arguments.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return args, nil
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", map[string]interface{}{
			"reason": fmt.Sprintf("expected an object, got %T", args),
		})
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
