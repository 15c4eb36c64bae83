package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultAnswerInstruction constrains answers to the supplied context.
const DefaultAnswerInstruction = `You are a retrieval-augmented assistant.
Answer ONLY from the context above.
If the context does not contain the answer, say "I don't know".
Keep the answer concise but clear.`

const unknownSource = "unknown source"

// DefaultPrompts returns the built-in templates keyed by prompt name.
// Prompt stores seed user-editable files from it.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptAnswerInstruction: DefaultAnswerInstruction,
		driven.PromptRerank:            DefaultRerankPrompt,
		driven.PromptJudge:             DefaultJudgePrompt,
	}
}

// PromptAssembler renders grounded prompts.
// The instruction block can be customised through a PromptStore.
type PromptAssembler struct {
	prompts driven.PromptStore
}

// NewPromptAssembler creates an assembler. prompts may be nil.
func NewPromptAssembler(prompts driven.PromptStore) *PromptAssembler {
	return &PromptAssembler{prompts: prompts}
}

// Build renders the prompt for question using the configured instruction.
func (a *PromptAssembler) Build(question string, contexts []domain.ScoredContext, history []domain.Turn) string {
	return BuildPrompt(question, contexts, history, a.instruction())
}

func (a *PromptAssembler) instruction() string {
	if a == nil || a.prompts == nil {
		return DefaultAnswerInstruction
	}
	text, err := a.prompts.Load(driven.PromptAnswerInstruction)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Debug("Answer instruction unavailable, using default: %v", err)
		return DefaultAnswerInstruction
	}
	return text
}

// BuildPrompt renders, in order: the latest history turns, the numbered
// context excerpts with their sources, the question, and the instruction.
func BuildPrompt(question string, contexts []domain.ScoredContext, history []domain.Turn, instruction string) string {
	var b strings.Builder

	b.WriteString("CONVERSATION HISTORY:\n")
	for _, turn := range domain.RecentTurns(history, domain.PromptHistoryTurns) {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role.Label(), turn.Content)
	}

	b.WriteString("\nCONTEXT:\n")
	for i, c := range contexts {
		source := c.Source
		if source == "" {
			source = unknownSource
		}
		fmt.Fprintf(&b, "Excerpt #%d (source: %s):\n%s\n\n---\n\n", i+1, source, c.Text)
	}

	fmt.Fprintf(&b, "QUESTION:\n%s\n\n", question)
	fmt.Fprintf(&b, "INSTRUCTIONS:\n%s\n\n", strings.TrimSpace(instruction))
	b.WriteString("ANSWER:")

	return b.String()
}
