package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func contextsOf(texts ...string) []domain.ScoredContext {
	out := make([]domain.ScoredContext, len(texts))
	for i, t := range texts {
		out[i] = domain.ScoredContext{Candidate: domain.Candidate{Chunk: domain.Chunk{ID: int64(i), Text: t, Source: "a.pdf"}}}
	}
	return out
}

func TestBuildPrompt_SectionOrder(t *testing.T) {
	history := domain.Exchange("What is X?", "X is a thing.")
	prompt := BuildPrompt("And Y?", contextsOf("first excerpt", "second excerpt"), history, "Only use context.")

	sections := []string{"CONVERSATION HISTORY:", "User: What is X?", "Assistant: X is a thing.",
		"CONTEXT:", "Excerpt #1 (source: a.pdf):\nfirst excerpt", "Excerpt #2 (source: a.pdf):\nsecond excerpt",
		"QUESTION:\nAnd Y?", "INSTRUCTIONS:\nOnly use context.", "ANSWER:"}

	pos := -1
	for _, s := range sections {
		idx := strings.Index(prompt, s)
		assert.Greater(t, idx, pos, "section %q out of order", s)
		pos = idx
	}
	assert.True(t, strings.HasSuffix(prompt, "ANSWER:"))
}

func TestBuildPrompt_HistoryWindow(t *testing.T) {
	var history []domain.Turn
	for i := range 5 {
		history = append(history, domain.Exchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))...)
	}

	prompt := BuildPrompt("now", nil, history, "x")

	// Only the latest six turns (three exchanges) are rendered.
	assert.NotContains(t, prompt, "User: q1\n")
	assert.Contains(t, prompt, "User: q2\n")
	assert.Contains(t, prompt, "Assistant: a4\n")
}

func TestBuildPrompt_EmptyHistoryAndUnknownSource(t *testing.T) {
	ctxs := []domain.ScoredContext{{Candidate: domain.Candidate{Chunk: domain.Chunk{Text: "orphan"}}}}

	prompt := BuildPrompt("q", ctxs, nil, "x")

	assert.True(t, strings.HasPrefix(prompt, "CONVERSATION HISTORY:\n\nCONTEXT:"))
	assert.Contains(t, prompt, "(source: unknown source)")
}

func TestPromptAssembler_Instruction(t *testing.T) {
	tests := []struct {
		name    string
		store   driven.PromptStore
		wantSub string
	}{
		{"nil store", nil, "Answer ONLY from the context"},
		{"custom", &mockPromptStore{prompts: map[string]string{driven.PromptAnswerInstruction: "Be brief."}}, "Be brief."},
		{"missing falls back", &mockPromptStore{prompts: map[string]string{}}, "Answer ONLY from the context"},
		{"blank falls back", &mockPromptStore{prompts: map[string]string{driven.PromptAnswerInstruction: "  "}}, "Answer ONLY"},
		{"error falls back", &mockPromptStore{loadErr: errors.New("disk")}, "Answer ONLY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewPromptAssembler(tt.store)
			assert.Contains(t, a.Build("q", nil, nil), tt.wantSub)
		})
	}
}

func TestDefaultPrompts_Placeholders(t *testing.T) {
	prompts := DefaultPrompts()

	require.Len(t, prompts, 3)
	assert.Equal(t, 0, strings.Count(prompts[driven.PromptAnswerInstruction], "%s"))
	assert.Equal(t, 2, strings.Count(prompts[driven.PromptRerank], "%s"))
	assert.Equal(t, 3, strings.Count(prompts[driven.PromptJudge], "%s"))
}
