package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

type messagesRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Stream    bool   `json:"stream"`
}

func newService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(Config{APIKey: "sk-ant-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return svc
}

func sse(w http.ResponseWriter, event string, data any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}

func drain(ch <-chan driven.Fragment) (string, error) {
	var sb strings.Builder
	for f := range ch {
		if f.Err != nil {
			return sb.String(), f.Err
		}
		sb.WriteString(f.Text)
	}
	return sb.String(), nil
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(Config{})

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestLLMService_Generate(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "msg_1", "type": "message", "role": "assistant", "model": req.Model,
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": "Paris"}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 1},
		})
	})

	out, err := svc.Generate(context.Background(), "capital?", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Paris", out)
}

func TestLLMService_Generate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"overloaded", 529, domain.ErrGenerationUnavailable},
		{"bad request", http.StatusBadRequest, domain.ErrGenerationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"error","message":"nope"}}`))
			})

			_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLLMService_Stream(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		sse(w, "message_start", map[string]any{"type": "message_start", "message": map[string]any{
			"id": "msg_1", "type": "message", "role": "assistant", "model": req.Model, "content": []any{},
			"usage": map[string]any{"input_tokens": 1, "output_tokens": 0},
		}})
		sse(w, "content_block_start", map[string]any{"type": "content_block_start", "index": 0,
			"content_block": map[string]any{"type": "text", "text": ""}})
		for _, part := range []string{"Par", "is"} {
			sse(w, "content_block_delta", map[string]any{"type": "content_block_delta", "index": 0,
				"delta": map[string]any{"type": "text_delta", "text": part}})
		}
		sse(w, "content_block_stop", map[string]any{"type": "content_block_stop", "index": 0})
		sse(w, "message_stop", map[string]any{"type": "message_stop"})
	})

	ch, err := svc.Stream(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)

	text, err := drain(ch)
	require.NoError(t, err)
	assert.Equal(t, "Paris", text)
}

func TestLLMService_Stream_StartFailure(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow"}}`))
	})

	_, err := svc.Stream(context.Background(), "q", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestLLMService_Ping(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"has_more":false,"first_id":null,"last_id":null}`))
	})

	assert.NoError(t, svc.Ping(context.Background()))
}
