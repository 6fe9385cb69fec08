package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)

	version, err := CurrentVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, storage.db))

	var count int
	require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err := CurrentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	// Reapplying brings the schema back to current
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	version, err = CurrentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestRecordScan(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	scan := &Scan{
		KnowledgeBase: "lore",
		StartedAt:     time.UnixMilli(1_700_000_000_000),
		Duration:      250 * time.Millisecond,
		DocumentCount: 12,
	}
	require.NoError(t, storage.RecordScan(ctx, scan))
	assert.Greater(t, scan.ID, int64(0))

	last, err := storage.LastScan(ctx, "lore")
	require.NoError(t, err)
	assert.Equal(t, scan.ID, last.ID)
	assert.Equal(t, 12, last.DocumentCount)
	assert.Equal(t, 250*time.Millisecond, last.Duration)
	assert.True(t, last.StartedAt.Equal(scan.StartedAt))
	assert.True(t, last.Succeeded())
}

func TestRecordScan_RequiresKnowledgeBase(t *testing.T) {
	storage := setupTestDB(t)
	assert.Error(t, storage.RecordScan(context.Background(), &Scan{}))
}

func TestLastScan_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.LastScan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecentScansAndStats(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	scans := []*Scan{
		{KnowledgeBase: "lore", StartedAt: base, DocumentCount: 3},
		{KnowledgeBase: "guides", StartedAt: base.Add(time.Second), Error: "api error 502"},
		{KnowledgeBase: "lore", StartedAt: base.Add(2 * time.Second), DocumentCount: 4},
	}
	for _, s := range scans {
		require.NoError(t, storage.RecordScan(ctx, s))
	}

	recent, err := storage.RecentScans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "lore", recent[0].KnowledgeBase)
	assert.Equal(t, 4, recent[0].DocumentCount)
	assert.Equal(t, "guides", recent[1].KnowledgeBase)
	assert.False(t, recent[1].Succeeded())

	stats, err := storage.ScanStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "guides", stats[0].KnowledgeBase)
	assert.Equal(t, 1, stats[0].TotalScans)
	assert.Equal(t, 1, stats[0].FailedScans)

	assert.Equal(t, "lore", stats[1].KnowledgeBase)
	assert.Equal(t, 2, stats[1].TotalScans)
	assert.Equal(t, 0, stats[1].FailedScans)
	assert.True(t, stats[1].LastScanAt.Equal(base.Add(2*time.Second)))
}
