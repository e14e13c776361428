package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClient_Ask(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat-with-sp-docs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"response": "The policy allows 20 days.",
			"sources": []map[string]string{
				{"name": "Leave.pdf", "path": "/HR/Leave.pdf", "webUrl": "https://sp/Leave.pdf"},
			},
		})
	})

	answer, err := NewChatClient(c).Ask(context.Background(), "How much leave?", "User: hi\nAssistant: hello")
	require.NoError(t, err)
	assert.Equal(t, "How much leave?", got.Query)
	assert.Equal(t, "User: hi\nAssistant: hello", got.History)
	assert.Equal(t, "The policy allows 20 days.", answer.Response)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "https://sp/Leave.pdf", answer.Sources[0].WebURL)
}

func TestChatClient_AskErrorField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"error": "index not ready"})
	})

	_, err := NewChatClient(c).Ask(context.Background(), "q", "")
	assert.Equal(t, KindApplication, KindOf(err))
	assert.Equal(t, "index not ready", Message(err))
}

func TestChatClient_UpdateKnowledgeBase(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"chunk count", map[string]any{"message": "ok", "indexed_chunk_count": 42}, 42},
		{"document count", map[string]any{"message": "ok", "indexed_count": 7}, 7},
		{"no count", map[string]any{"message": "ok"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				writeJSON(w, http.StatusOK, tt.body)
			})
			update, err := NewChatClient(c).UpdateKnowledgeBase(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "ok", update.Message)
			assert.Equal(t, tt.want, update.Indexed)
		})
	}
}

func TestChatClient_ListDocuments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"documents": []map[string]string{{"name": "a.docx"}, {"name": "b.pdf"}},
		})
	})

	docs, err := NewChatClient(c).ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.pdf", docs[1].Name)
}
