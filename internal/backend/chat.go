package backend

import (
	"context"

	"github.com/nhle/inboxdesk/internal/model"
)

// ChatClient talks to the knowledge-base chat backend.
type ChatClient struct {
	c *Client
}

// NewChatClient wraps c with the chat backend endpoints.
func NewChatClient(c *Client) *ChatClient {
	return &ChatClient{c: c}
}

type chatRequest struct {
	Query   string `json:"query"`
	History string `json:"history"`
}

type chatResponse struct {
	model.ChatAnswer
	Error string `json:"error"`
}

// Ask sends a question plus the formatted prior conversation and returns
// the answer with its citations.
func (c *ChatClient) Ask(ctx context.Context, query, history string) (*model.ChatAnswer, error) {
	var resp chatResponse
	err := c.c.Post(ctx, "ask knowledge base", "/chat-with-sp-docs", chatRequest{
		Query:   query,
		History: history,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Kind: KindApplication, Op: "ask knowledge base", Message: resp.Error}
	}

	answer := resp.ChatAnswer
	return &answer, nil
}

type updateResponse struct {
	Message           string `json:"message"`
	IndexedCount      *int   `json:"indexed_count"`
	IndexedChunkCount *int   `json:"indexed_chunk_count"`
	Error             string `json:"error"`
}

// UpdateKnowledgeBase re-indexes the document library.
func (c *ChatClient) UpdateKnowledgeBase(ctx context.Context) (*model.KnowledgeBaseUpdate, error) {
	var resp updateResponse
	if err := c.c.Post(ctx, "update knowledge base", "/update-knowledgebase", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Kind: KindApplication, Op: "update knowledge base", Message: resp.Error}
	}

	update := &model.KnowledgeBaseUpdate{Message: resp.Message}
	switch {
	case resp.IndexedChunkCount != nil:
		update.Indexed = *resp.IndexedChunkCount
	case resp.IndexedCount != nil:
		update.Indexed = *resp.IndexedCount
	}
	return update, nil
}

type documentsResponse struct {
	Documents []model.DocumentRef `json:"documents"`
	Error     string              `json:"error"`
}

// ListDocuments returns the documents currently in the index.
func (c *ChatClient) ListDocuments(ctx context.Context) ([]model.DocumentRef, error) {
	var resp documentsResponse
	if err := c.c.Get(ctx, "list indexed documents", "/list-indexed-documents", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &APIError{Kind: KindApplication, Op: "list indexed documents", Message: resp.Error}
	}
	return resp.Documents, nil
}
