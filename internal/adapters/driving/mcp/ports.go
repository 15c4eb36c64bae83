package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Retrieval exposes the context search without generation.
	Retrieval driving.RetrievalService

	// Ingest indexes local files and text.
	Ingest driving.IngestService

	// Metrics backs the metrics summary resource.
	Metrics driving.MetricsService

	// Retrieval options the tools start from. Zero uses the default settings.
	Options domain.RetrievalOptions
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	// Retrieval, Ingest and Metrics are optional; their tools are not registered without them
	return nil
}
