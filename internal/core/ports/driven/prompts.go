package driven

// PromptStore returns prompt templates by name. Names without an override
// fall back to the built-in template.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached templates so edited files apply to the next request.
	Reload()
}

// Prompt names.
const (
	// PromptAnswerInstruction is the grounding instruction placed before the answer.
	// It has no format placeholders.
	PromptAnswerInstruction = "answer_instruction"

	// PromptRerank asks for relevance scores.
	// It expects %s (question) and %s (numbered candidate list) placeholders.
	PromptRerank = "rerank"

	// PromptJudge asks for an answer quality verdict.
	// It expects %s (question), %s (reference answer) and %s (answer) placeholders.
	PromptJudge = "judge"
)
