// Package qdrant provides a VectorIndex backed by a Qdrant server's REST API.
//
// The collection is dropped and recreated with cosine distance when the index
// is opened, so contents never survive a restart. Chunk ids are used as
// Qdrant point ids; the chunk text and source travel in the payload.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "docs"
	DefaultTimeout    = 15 * time.Second
)

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name (default: docs).
	Collection string

	// Dimensions is the vector size of the collection.
	Dimensions int

	// Timeout bounds each HTTP request (default: 15s).
	Timeout time.Duration

	// HTTPClient overrides the default client. Used by tests.
	HTTPClient *http.Client
}

// Index implements driven.VectorIndex over Qdrant.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	dimensions int
	client     *http.Client
}

// New connects to Qdrant and recreates the collection.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: qdrant collection needs a positive dimension", domain.ErrInvalidInput)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	x := &Index{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		client:     client,
	}
	if err := x.recreate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Qdrant collection %q ready (%d dimensions) at %s", x.collection, x.dimensions, x.baseURL)
	return x, nil
}

// recreate drops the collection if present and creates it empty.
func (x *Index) recreate(ctx context.Context) error {
	err := x.do(ctx, http.MethodDelete, x.collectionURL(""), nil, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("dropping qdrant collection: %w", err)
	}

	body := createCollectionRequest{}
	body.Vectors.Size = x.dimensions
	body.Vectors.Distance = "Cosine"
	if err := x.do(ctx, http.MethodPut, x.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("creating qdrant collection: %w", err)
	}
	return nil
}

// Upsert writes points keyed by chunk id and waits for them to be indexed.
func (x *Index) Upsert(ctx context.Context, items []domain.IndexedVector) error {
	if len(items) == 0 {
		return nil
	}

	points := make([]point, len(items))
	for i, it := range items {
		if len(it.Vector) != x.dimensions {
			return fmt.Errorf("%w: chunk %d has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, it.ID, len(it.Vector), x.dimensions)
		}
		if it.ID < 0 {
			return fmt.Errorf("%w: chunk id %d is negative", domain.ErrInvalidInput, it.ID)
		}
		points[i] = point{
			ID:     it.ID,
			Vector: it.Vector,
			Payload: payload{
				Text:       it.Text,
				SourceFile: it.Source,
			},
		}
	}

	if err := x.do(ctx, http.MethodPut, x.collectionURL("/points?wait=true"), upsertRequest{Points: points}, nil); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the k nearest points by cosine similarity.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Candidate, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dimensions)
	}
	if k <= 0 {
		return []domain.Candidate{}, nil
	}

	req := searchRequest{Vector: query, Limit: k, WithPayload: true}
	var resp searchResponse
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("searching qdrant: %w", err)
	}

	results := make([]domain.Candidate, 0, len(resp.Result))
	for _, hit := range resp.Result {
		results = append(results, domain.Candidate{
			Chunk: domain.Chunk{
				ID:     hit.ID,
				Text:   hit.Payload.Text,
				Source: hit.Payload.SourceFile,
			},
			Score: hit.Score,
		})
	}
	// Qdrant leaves equal scores unordered; ids follow insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// Count returns the exact number of points in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	var resp countResponse
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/count"), countRequest{Exact: true}, &resp); err != nil {
		return 0, fmt.Errorf("counting qdrant points: %w", err)
	}
	return resp.Result.Count, nil
}

// Dimensions returns the collection's vector size.
func (x *Index) Dimensions() int {
	return x.dimensions
}

// Close releases idle connections.
func (x *Index) Close() error {
	x.client.CloseIdleConnections()
	return nil
}

func (x *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.baseURL, x.collection, suffix)
}

// statusError is a non-2xx response from Qdrant.
type statusError struct {
	Code   int
	Status string
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qdrant returned %s", e.Status)
	}
	return fmt.Sprintf("qdrant returned %s: %s", e.Status, e.Body)
}

func isStatus(err error, code int) bool {
	var se *statusError
	return errors.As(err, &se) && se.Code == code
}

func (x *Index) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Qdrant REST request/response types.

type createCollectionRequest struct {
	Vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	} `json:"vectors"`
}

type payload struct {
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
}

type point struct {
	ID      int64     `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		ID      int64   `json:"id"`
		Score   float64 `json:"score"`
		Payload payload `json:"payload"`
	} `json:"result"`
}

type countRequest struct {
	Exact bool `json:"exact"`
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}
