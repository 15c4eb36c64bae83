package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func metricsRecord(ts time.Time, session string, first *float64) domain.MetricsRecord {
	return domain.MetricsRecord{
		Timestamp:            domain.UnixTime{Time: ts},
		Endpoint:             domain.EndpointChat,
		SessionID:            session,
		Question:             "what is the refund window?",
		AnswerLen:            42,
		ContextLen:           3,
		InputTokensEst:       120,
		OutputTokensEst:      30,
		CostEstimate:         0.0000360,
		TotalLatencySec:      1.25,
		FirstTokenLatencySec: first,
		RetrievalState:       domain.RetrievalReranked,
	}
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Invalid path (should fail to create directory)
	_, err = NewStore("/invalid\x00path/metrics.db")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	// A directory gets the default file name
	dbPath := filepath.Join(tempDir, DefaultFileName)
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
	assert.NoError(t, store.db.Ping())
}

func TestNewStore_ExplicitFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "path", "requests.sqlite")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)
}

func TestNewStore_Migrations(t *testing.T) {
	store := setupTestStore(t)

	var versions int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions)
	require.NoError(t, err)
	assert.Equal(t, 2, versions)

	for _, table := range []string{"request_metrics", "feedback"} {
		var exists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.Equal(t, 1, exists, "table %s should exist", table)
	}
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.MetricsStore().Write(context.Background(), metricsRecord(time.Now(), "s1", nil)))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var versions int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)

	records, err := second.MetricsStore().Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

// ==================== MetricsStore Tests ====================

func TestMetricsStore_WriteAndRecords(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	metrics := store.MetricsStore()

	first := 0.4
	ts := time.Unix(1718000000, 250000000)
	require.NoError(t, metrics.Write(ctx, metricsRecord(ts, "s1", &first)))
	require.NoError(t, metrics.Write(ctx, metricsRecord(ts.Add(time.Second), "s2", nil)))

	records, err := metrics.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, domain.EndpointChat, got.Endpoint)
	assert.Equal(t, 42, got.AnswerLen)
	assert.Equal(t, 3, got.ContextLen)
	assert.Equal(t, 120, got.InputTokensEst)
	assert.Equal(t, 30, got.OutputTokensEst)
	assert.InDelta(t, 0.000036, got.CostEstimate, 1e-12)
	assert.InDelta(t, 1.25, got.TotalLatencySec, 1e-9)
	require.NotNil(t, got.FirstTokenLatencySec)
	assert.InDelta(t, 0.4, *got.FirstTokenLatencySec, 1e-9)
	assert.Equal(t, domain.RetrievalReranked, got.RetrievalState)
	assert.WithinDuration(t, ts, got.Timestamp.Time, time.Millisecond)

	assert.Equal(t, "s2", records[1].SessionID)
	assert.Nil(t, records[1].FirstTokenLatencySec)
}

func TestMetricsStore_RecordsEmpty(t *testing.T) {
	store := setupTestStore(t)

	records, err := store.MetricsStore().Records(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMetricsStore_Recent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	metrics := store.MetricsStore()

	base := time.Unix(1718000000, 0)
	// Written out of timestamp order.
	for _, offset := range []int{2, 0, 3, 1} {
		rec := metricsRecord(base.Add(time.Duration(offset)*time.Minute), fmt.Sprintf("s%d", offset), nil)
		require.NoError(t, metrics.Write(ctx, rec))
	}

	recent, err := metrics.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "s3", recent[0].SessionID)
	assert.Equal(t, "s2", recent[1].SessionID)

	none, err := metrics.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMetricsStore_SummaryMatchesLog(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	metrics := store.MetricsStore()

	first := 0.5
	require.NoError(t, metrics.Write(ctx, metricsRecord(time.Now(), "a", &first)))
	require.NoError(t, metrics.Write(ctx, metricsRecord(time.Now(), "b", nil)))

	records, err := metrics.Records(ctx)
	require.NoError(t, err)

	summary := domain.Summarise(records, 50)
	assert.Equal(t, 2, summary.TotalRequests)
	require.NotNil(t, summary.AvgFirstTokenLatencySec)
	assert.InDelta(t, 0.5, *summary.AvgFirstTokenLatencySec, 1e-9)
}

func TestMetricsStore_ContextCancellation(t *testing.T) {
	store := setupTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.MetricsStore().Write(ctx, metricsRecord(time.Now(), "s1", nil))
	assert.Error(t, err)
}

// ==================== FeedbackStore Tests ====================

func TestFeedbackStore_SaveAndQuery(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	feedback := store.FeedbackStore()

	require.NoError(t, feedback.Save(ctx, domain.Feedback{
		SessionID: "s1", Question: "q1", Answer: "a1", Rating: 5, Comment: "spot on",
	}))
	require.NoError(t, feedback.Save(ctx, domain.Feedback{
		SessionID: "s1", Question: "q2", Answer: "a2", Rating: 2,
	}))
	require.NoError(t, feedback.Save(ctx, domain.Feedback{
		SessionID: "s2", Question: "q3", Rating: 4,
	}))

	got, err := store.FeedbackFor(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].Question)
	assert.Equal(t, "spot on", got[0].Comment)
	assert.Equal(t, 2, got[1].Rating)
}

func TestFeedbackStore_UnknownSession(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.FeedbackFor(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedbackStore_RatingConstraint(t *testing.T) {
	store := setupTestStore(t)

	err := store.FeedbackStore().Save(context.Background(), domain.Feedback{
		SessionID: "s1", Question: "q", Rating: 9,
	})
	assert.Error(t, err)
}

// ==================== Concurrent Access Tests ====================

func TestStore_ConcurrentWrites(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	metrics := store.MetricsStore()

	const numGoroutines = 10
	done := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			done <- metrics.Write(ctx, metricsRecord(time.Now(), fmt.Sprintf("s%d", id), nil))
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		assert.NoError(t, <-done)
	}

	records, err := metrics.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, numGoroutines)
}
