package storage

import (
	"context"
	"time"
)

// Storage persists the outcome of discovery scans. It never stores documents
// or sessions.
type Storage interface {
	// Scan operations
	RecordScan(ctx context.Context, scan *Scan) error
	LastScan(ctx context.Context, knowledgeBase string) (*Scan, error)
	RecentScans(ctx context.Context, limit int) ([]*Scan, error)
	ScanStats(ctx context.Context) ([]KnowledgeBaseStats, error)

	// Database operations
	Close() error
}

// Scan is one discovery run against a knowledge base
type Scan struct {
	ID            int64
	KnowledgeBase string
	StartedAt     time.Time
	Duration      time.Duration
	DocumentCount int
	Error         string // Empty when the scan succeeded
}

// Succeeded reports whether the scan completed without error
func (s *Scan) Succeeded() bool {
	return s.Error == ""
}

// KnowledgeBaseStats aggregates scans for one knowledge base
type KnowledgeBaseStats struct {
	KnowledgeBase string
	TotalScans    int
	FailedScans   int
	LastScanAt    time.Time
}
