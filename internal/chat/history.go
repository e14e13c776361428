package chat

import (
	"strings"
	"sync"

	"github.com/nhle/inboxdesk/internal/model"
)

// MaxTurns bounds the history sent with each query: ten exchanges.
const MaxTurns = 20

// History keeps the most recent chat turns, dropping the oldest once
// MaxTurns is exceeded.
type History struct {
	mu       sync.Mutex
	turns    []model.ChatTurn
	maxTurns int
}

// NewHistory creates an empty history bounded to MaxTurns.
func NewHistory() *History {
	return &History{
		turns:    make([]model.ChatTurn, 0, MaxTurns),
		maxTurns: MaxTurns,
	}
}

// AddExchange appends a user question and the assistant's answer.
func (h *History) AddExchange(question, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns,
		model.ChatTurn{Role: model.RoleUser, Content: question},
		model.ChatTurn{Role: model.RoleAssistant, Content: answer},
	)

	if excess := len(h.turns) - h.maxTurns; excess > 0 {
		trimmed := make([]model.ChatTurn, 0, h.maxTurns)
		trimmed = append(trimmed, h.turns[excess:]...)
		h.turns = trimmed
	}
}

// Turns returns a copy of the current history.
func (h *History) Turns() []model.ChatTurn {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]model.ChatTurn, len(h.turns))
	copy(result, h.turns)
	return result
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.turns)
}

// Reset clears the history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = h.turns[:0]
}

// Format renders the history as the plain-text transcript the chat
// backend expects in its "history" field.
func (h *History) Format() string {
	turns := h.Turns()
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch t.Role {
		case model.RoleUser:
			sb.WriteString("User: ")
		default:
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(t.Content)
	}
	return sb.String()
}
