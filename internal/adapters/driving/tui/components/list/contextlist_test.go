package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func testContexts() []domain.ScoredContext {
	rel := 0.9
	return []domain.ScoredContext{
		{
			Candidate:   domain.Candidate{Chunk: domain.Chunk{ID: 1, Text: "Paris is the capital of France.", Source: "france.txt"}, Score: 0.81},
			RerankScore: &rel,
		},
		{
			Candidate: domain.Candidate{Chunk: domain.Chunk{ID: 2, Text: strings.Repeat("long ", 100), Source: "long.txt"}, Score: 0.42},
		},
	}
}

func TestContextList_Empty(t *testing.T) {
	l := NewContextList(nil)

	assert.Equal(t, 0, l.Count())
	assert.Contains(t, l.View(), "No sources")
}

func TestContextList_View(t *testing.T) {
	l := NewContextList(nil)
	l.SetDimensions(80, 20)
	l.SetContexts(testContexts())

	view := l.View()
	assert.Contains(t, view, "Sources (2)")
	assert.Contains(t, view, "#1 france.txt")
	assert.Contains(t, view, "sim 0.81")
	assert.Contains(t, view, "rel 0.90")
	assert.Contains(t, view, "...")
}

func TestContextList_Navigation(t *testing.T) {
	l := NewContextList(nil)
	l.SetContexts(testContexts())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, l.Selected())
	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, l.Expanded())
	assert.NotContains(t, l.View(), "...")

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, l.Selected())
	assert.False(t, l.Expanded())
}
