package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a chat session.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LatestUserMessage returns the content of the last user message in msgs.
func LatestUserMessage(msgs []ChatMessage) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content, true
		}
	}
	return "", false
}
