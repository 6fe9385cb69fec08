// Package storage provides SQLite-based bookkeeping for discovery scans.
//
// Every scan of a knowledge base's remote tree is recorded with its start
// time, duration, document count and error text. The log feeds the
// catalog_status tool. Documents and sessions are never stored here.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migrations, compared with semver
//   - scans: one row per discovery scan
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(":memory:")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.RecordScan(ctx, &storage.Scan{
//	    KnowledgeBase: "lore",
//	    StartedAt:     time.Now(),
//	    DocumentCount: 42,
//	})
//
// The default path ":memory:" keeps the log for the life of the process. A
// file path may be configured, in which case migrations run on open.
//
// # Drivers
//
// The pure Go driver (modernc.org/sqlite) is used by default. Building with
// the sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
package storage
