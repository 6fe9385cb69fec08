// Package types provides shared type definitions for the mdkb MCP server.
//
// # Core Types
//
// KnowledgeBase describes a scoped collection of markdown files in a remote
// repository:
//
//	kb := types.KnowledgeBase{
//	    ID:     "lore",
//	    Name:   "World Lore",
//	    Owner:  "acme",
//	    Repo:   "handbook",
//	    Branch: "main",
//	    Path:   "./vision",
//	}
//
// Document is one markdown file found in a knowledge base. Its Name is the path
// relative to the knowledge base scope without the ".md" extension, so nested
// directories stay visible ("notes/a"):
//
//	doc := types.Document{
//	    Name:          "notes/a",
//	    Title:         "A",
//	    Path:          "vision/notes/a.md",
//	    KnowledgeBase: "lore",
//	}
//
// # Results and Errors
//
// Catalog operations never fail past their boundary. They return a Result that
// is either a text payload or an ErrorKind with a message:
//
//	res := types.FailErr(&types.UnknownKnowledgeBaseError{ID: "nope"})
//	res.IsError() // true
//	res.Kind      // types.KindUnknownKnowledgeBase
//
// Typed errors unwrap to sentinel values so callers can use errors.Is:
//
//	errors.Is(err, types.ErrDocumentNotFound)
package types
