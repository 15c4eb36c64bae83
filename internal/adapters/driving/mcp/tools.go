package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"continue an earlier conversation"`
	Rerank    *bool  `json:"rerank,omitempty" jsonschema:"score candidates for relevance before answering (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	SessionID      string          `json:"session_id"`
	Answer         string          `json:"answer"`
	RetrievalState string          `json:"retrieval_state"`
	Contexts       []ContextOutput `json:"contexts"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query  string `json:"query" jsonschema:"the text to find relevant excerpts for"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of excerpts to return (default from settings)"`
	Rerank *bool  `json:"rerank,omitempty" jsonschema:"score candidates for relevance (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	RetrievalState string          `json:"retrieval_state"`
	Contexts       []ContextOutput `json:"contexts"`
	Count          int             `json:"count"`
}

// ContextOutput represents a single retrieved excerpt.
type ContextOutput struct {
	ID          int64    `json:"id"`
	Source      string   `json:"source"`
	Text        string   `json:"text"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Path   string `json:"path,omitempty" jsonschema:"local .txt or .pdf file to index"`
	Text   string `json:"text,omitempty" jsonschema:"raw text to index instead of a file"`
	Source string `json:"source,omitempty" jsonschema:"name the excerpts are attributed to (default: file name)"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Source        string `json:"source"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents",
	}, s.handleAsk)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "retrieve",
			Description: "Find the document excerpts most relevant to a query without generating an answer",
		}, s.handleRetrieve)
	}

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Index a local TXT or PDF file, or raw text, for later questions",
		}, s.handleIngest)
	}
}

// options applies an optional rerank override to the configured options.
func (s *Server) options(rerank *bool) domain.RetrievalOptions {
	opts := s.ports.Options
	if rerank != nil {
		opts.Rerank = *rerank
	}
	return opts
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := s.options(input.Rerank)
	resp, err := s.ports.Chat.Ask(ctx, driving.ChatRequest{
		Question:  input.Question,
		SessionID: input.SessionID,
		Retrieval: &opts,
		Endpoint:  domain.EndpointMCP,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		SessionID:      resp.SessionID,
		Answer:         resp.Answer,
		RetrievalState: resp.State.String(),
		Contexts:       toContextOutputs(resp.Contexts),
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	opts := s.options(input.Rerank)
	if input.Limit > 0 {
		opts.UseChunks = input.Limit
		opts.TopK = max(opts.TopK, input.Limit)
	}

	result, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		RetrievalState: result.State.String(),
		Contexts:       toContextOutputs(result.Contexts),
		Count:          len(result.Contexts),
	}
	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	var (
		result *domain.IngestResult
		err    error
	)
	switch {
	case input.Path != "" && input.Text != "":
		return nil, IngestOutput{}, fmt.Errorf("%w: give either path or text, not both", domain.ErrInvalidInput)
	case input.Path != "":
		result, err = s.ports.Ingest.IngestFile(ctx, input.Path, input.Source)
	case input.Text != "":
		if input.Source == "" {
			return nil, IngestOutput{}, fmt.Errorf("%w: source is required with text", domain.ErrInvalidInput)
		}
		result, err = s.ports.Ingest.IngestText(ctx, input.Source, input.Text)
	default:
		return nil, IngestOutput{}, fmt.Errorf("%w: path or text is required", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{Source: result.Source, ChunksIndexed: result.ChunksIndexed}, nil
}

func toContextOutputs(contexts []domain.ScoredContext) []ContextOutput {
	out := make([]ContextOutput, len(contexts))
	for i, c := range contexts {
		out[i] = ContextOutput{
			ID:          c.ID,
			Source:      c.Source,
			Text:        c.Text,
			Score:       c.Score,
			RerankScore: c.RerankScore,
		}
	}
	return out
}
