package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultMetricsPath is where the request log lives unless configured.
const DefaultMetricsPath = "logs/requests.jsonl"

// maxLineBytes bounds a single record; questions are user input.
const maxLineBytes = 4 << 20

var (
	_ driven.MetricsSink   = (*MetricsLog)(nil)
	_ driven.MetricsReader = (*MetricsLog)(nil)
)

// MetricsLog is the append-only request metrics log.
type MetricsLog struct {
	w *appender
}

// OpenMetricsLog opens (creating if needed) the log at path.
func OpenMetricsLog(path string) (*MetricsLog, error) {
	if path == "" {
		path = DefaultMetricsPath
	}
	w, err := openAppender(path)
	if err != nil {
		return nil, err
	}
	return &MetricsLog{w: w}, nil
}

// Path returns the log file path.
func (l *MetricsLog) Path() string {
	return l.w.path
}

// Write appends one record as a single line.
func (l *MetricsLog) Write(_ context.Context, rec domain.MetricsRecord) error {
	return l.w.append(rec)
}

// Records reads the log back in append order.
func (l *MetricsLog) Records(ctx context.Context) ([]domain.MetricsRecord, error) {
	return ReadMetrics(ctx, l.w.path)
}

// Close closes the log file.
func (l *MetricsLog) Close() error {
	return l.w.close()
}

// ReadMetrics parses a metrics log without opening it for writing.
// A missing file yields no records. Malformed lines are skipped with a warning.
func ReadMetrics(ctx context.Context, path string) ([]domain.MetricsRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.MetricsRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening metrics log: %w", err)
	}
	defer f.Close()

	records := []domain.MetricsRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec domain.MetricsRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("Skipping malformed metrics line %d in %s: %v", line, path, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading metrics log: %w", err)
	}
	return records, nil
}
