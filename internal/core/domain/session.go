package domain

// Role identifies the speaker of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label returns the role as rendered in prompts.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// PromptHistoryTurns is how many of the most recent turns reach a prompt.
const PromptHistoryTurns = 6

// Turn is one entry of a session's history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange returns the adjacent user/assistant pair for one answered question.
func Exchange(question, answer string) []Turn {
	return []Turn{
		{Role: RoleUser, Content: question},
		{Role: RoleAssistant, Content: answer},
	}
}

// RecentTurns returns at most n of the latest turns, oldest first.
func RecentTurns(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
