package httpapi

import (
	"errors"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("httpapi: chat service is required")

// ErrMissingIngestService is returned when the ingest service is not provided.
var ErrMissingIngestService = errors.New("httpapi: ingest service is required")

// Ports aggregates the driving ports the server calls.
type Ports struct {
	Ingest driving.IngestService
	Chat   driving.ChatService

	// Metrics and Feedback are optional; their routes answer 404 without them.
	Metrics  driving.MetricsService
	Feedback driving.FeedbackService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}
