package model

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one message of the knowledge-base conversation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DocumentRef points at a knowledge-base document. It is used both for
// answer citations and for the indexed document listing.
type DocumentRef struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	WebURL string `json:"webUrl"`
}

// ChatAnswer is the backend's reply to a chat query.
type ChatAnswer struct {
	Response string        `json:"response"`
	Sources  []DocumentRef `json:"sources"`
}

// KnowledgeBaseUpdate reports the outcome of a re-index.
type KnowledgeBaseUpdate struct {
	Message string
	Indexed int
}
