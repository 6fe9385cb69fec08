// Package mcp implements the Model Context Protocol (MCP) server for mdkb.
//
// The server exposes six tools over the catalog:
//   - list_knowledge_bases: configured knowledge bases with document counts
//   - list_documents: documents grouped by knowledge base
//   - search_documents: case-insensitive match on document names and titles
//   - get_document: raw markdown of one document
//   - refresh_documents: drop cached listings and rescan
//   - catalog_status: cache freshness and recent discovery scans
//
// and one resource, kb://knowledge-bases, a JSON listing of the knowledge
// bases.
//
// # Operation table
//
// Operations is a static table of tool definitions and handlers. Every
// server registers all of it; there is no runtime registration. Handlers
// return catalog results, and error results reach the client as tool
// results with isError set:
//
//	Request:
//	{
//	  "name": "get_document",
//	  "arguments": {
//	    "knowledge_base": "lore",
//	    "document": "characters/merchant"
//	  }
//	}
//
//	Response:
//	{
//	  "content": [{"type": "text", "text": "document \"characters/merchant\" not found in \"World Lore\" (status 404)"}],
//	  "isError": true
//	}
//
// # Transports
//
// Over HTTP each session gets its own Server and Transport, built by
// Factory for the session registry. The transport is also the session id
// manager for the mcp-go streamable handler it wraps: it adopts a session
// id supplied by the client, or generates one, and reports it once through
// the initialization callback. Stateless transports never report an id.
//
// Over stdio a single Server is served with Serve:
//
//	mdkb stdio --config mdkb.yaml
package mcp
