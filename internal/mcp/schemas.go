package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// knowledgeBaseProperty is the optional knowledge_base filter shared by the
// listing tools
func knowledgeBaseProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// listKnowledgeBasesTool returns the tool definition for list_knowledge_bases
func listKnowledgeBasesTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolListKnowledgeBases,
		Description: "List the configured knowledge bases with their document counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listDocumentsTool returns the tool definition for list_documents
func listDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolListDocuments,
		Description: "List available markdown documents, grouped by knowledge base",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				ArgKnowledgeBase: knowledgeBaseProperty("Knowledge base id to list (all knowledge bases if omitted)"),
			},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolSearchDocuments,
		Description: "Search documents by name or title (case-insensitive substring match)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				ArgQuery: map[string]interface{}{
					"type":        "string",
					"description": "Text to look for in document names and titles",
				},
				ArgKnowledgeBase: knowledgeBaseProperty("Knowledge base id to search (all knowledge bases if omitted)"),
			},
			Required: []string{ArgQuery},
		},
	}
}

// getDocumentTool returns the tool definition for get_document
func getDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolGetDocument,
		Description: "Get the raw markdown content of a document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				ArgKnowledgeBase: knowledgeBaseProperty("Knowledge base id containing the document"),
				ArgDocument: map[string]interface{}{
					"type":        "string",
					"description": "Document name as listed by list_documents (relative path without .md)",
				},
			},
			Required: []string{ArgKnowledgeBase, ArgDocument},
		},
	}
}

// refreshDocumentsTool returns the tool definition for refresh_documents
func refreshDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolRefreshDocuments,
		Description: "Drop cached document listings and rescan every knowledge base",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// catalogStatusTool returns the tool definition for catalog_status
func catalogStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolCatalogStatus,
		Description: "Report cache freshness and recent discovery scans",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
