package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	resp    *driving.ChatResponse
	turns   []domain.Turn
	err     error
	lastReq driving.ChatRequest
}

func (m *mockChatService) Ask(_ context.Context, req driving.ChatRequest) (*driving.ChatResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func (m *mockChatService) AskStream(_ context.Context, _ driving.ChatRequest) (driving.AnswerStream, error) {
	return nil, m.err
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.Turn, error) {
	return m.turns, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result   *domain.RetrievalResult
	err      error
	lastOpts domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	m.lastOpts = opts
	return m.result, m.err
}
