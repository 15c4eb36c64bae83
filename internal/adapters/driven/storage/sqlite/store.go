package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// DefaultFileName is used when NewStore is given a directory.
const DefaultFileName = "metrics.db"

// Store is a SQLite database holding metrics and feedback.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and migrates it.
// A path without a file extension is treated as a directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path must not be empty", domain.ErrInvalidInput)
	}
	if filepath.Ext(path) == "" {
		path = filepath.Join(path, DefaultFileName)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// MetricsStore returns the metrics table as a sink and reader.
func (s *Store) MetricsStore() *MetricsStore {
	return &MetricsStore{store: s}
}

// FeedbackStore returns the feedback table as a driven.FeedbackStore.
func (s *Store) FeedbackStore() driven.FeedbackStore {
	return &feedbackStore{store: s}
}

// migrate applies every embedded migration newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_metrics.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Metrics Store ====================

// MetricsStore implements driven.MetricsSink and driven.MetricsReader.
type MetricsStore struct {
	store *Store
}

var (
	_ driven.MetricsSink   = (*MetricsStore)(nil)
	_ driven.MetricsReader = (*MetricsStore)(nil)
)

// Write inserts one record.
func (m *MetricsStore) Write(ctx context.Context, rec domain.MetricsRecord) error {
	var first sql.NullFloat64
	if rec.FirstTokenLatencySec != nil {
		first = sql.NullFloat64{Float64: *rec.FirstTokenLatencySec, Valid: true}
	}
	_, err := m.store.db.ExecContext(ctx, `
		INSERT INTO request_metrics (
			ts, endpoint, session_id, question, answer_len, context_len,
			input_tokens_est, output_tokens_est, cost_estimate,
			total_latency_sec, first_token_latency_sec, retrieval_state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		unixSeconds(rec.Timestamp.Time), rec.Endpoint, rec.SessionID, rec.Question,
		rec.AnswerLen, rec.ContextLen, rec.InputTokensEst, rec.OutputTokensEst, rec.CostEstimate,
		rec.TotalLatencySec, first, string(rec.RetrievalState),
	)
	if err != nil {
		return fmt.Errorf("inserting metrics record: %w", err)
	}
	return nil
}

// Records returns every record in insertion order.
func (m *MetricsStore) Records(ctx context.Context) ([]domain.MetricsRecord, error) {
	return m.query(ctx, "ORDER BY id ASC")
}

// Recent returns at most limit records, newest first.
func (m *MetricsStore) Recent(ctx context.Context, limit int) ([]domain.MetricsRecord, error) {
	if limit <= 0 {
		return []domain.MetricsRecord{}, nil
	}
	return m.query(ctx, "ORDER BY ts DESC, id DESC LIMIT ?", limit)
}

// Close is a no-op; the owning Store closes the connection.
func (m *MetricsStore) Close() error {
	return nil
}

func (m *MetricsStore) query(ctx context.Context, suffix string, args ...any) ([]domain.MetricsRecord, error) {
	rows, err := m.store.db.QueryContext(ctx, `
		SELECT ts, endpoint, session_id, question, answer_len, context_len,
		       input_tokens_est, output_tokens_est, cost_estimate,
		       total_latency_sec, first_token_latency_sec, retrieval_state
		FROM request_metrics `+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	records := []domain.MetricsRecord{}
	for rows.Next() {
		rec, err := scanMetricsRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ==================== Feedback Store ====================

// feedbackStore implements driven.FeedbackStore.
type feedbackStore struct {
	store *Store
}

var _ driven.FeedbackStore = (*feedbackStore)(nil)

// Save inserts one rating.
func (f *feedbackStore) Save(ctx context.Context, fb domain.Feedback) error {
	_, err := f.store.db.ExecContext(ctx, `
		INSERT INTO feedback (created_at, session_id, question, answer, rating, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`, unixSeconds(time.Now()), fb.SessionID, fb.Question, fb.Answer, fb.Rating, fb.Comment)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the connection.
func (f *feedbackStore) Close() error {
	return nil
}

// FeedbackFor returns a session's ratings in submission order.
func (s *Store) FeedbackFor(ctx context.Context, sessionID string) ([]domain.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, question, answer, rating, comment
		FROM feedback WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(&fb.SessionID, &fb.Question, &fb.Answer, &fb.Rating, &fb.Comment); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		out = append(out, fb)
	}
	if len(out) == 0 && rows.Err() == nil {
		return nil, domain.ErrNotFound
	}
	return out, rows.Err()
}

// ==================== Helper Functions ====================

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(sec float64) time.Time {
	whole := int64(sec)
	return time.Unix(whole, int64((sec-float64(whole))*float64(time.Second)))
}

func scanMetricsRecord(rows *sql.Rows) (*domain.MetricsRecord, error) {
	var (
		rec   domain.MetricsRecord
		ts    float64
		first sql.NullFloat64
		state string
	)
	err := rows.Scan(&ts, &rec.Endpoint, &rec.SessionID, &rec.Question, &rec.AnswerLen, &rec.ContextLen,
		&rec.InputTokensEst, &rec.OutputTokensEst, &rec.CostEstimate,
		&rec.TotalLatencySec, &first, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning metrics record: %w", err)
	}
	rec.Timestamp = domain.UnixTime{Time: fromUnixSeconds(ts)}
	if first.Valid {
		v := first.Float64
		rec.FirstTokenLatencySec = &v
	}
	rec.RetrievalState = domain.RetrievalState(state)
	return &rec, nil
}
