package docs

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/ui"
)

type mockClient struct {
	ListDocumentsFunc       func() ([]model.DocumentRef, error)
	UpdateKnowledgeBaseFunc func() (*model.KnowledgeBaseUpdate, error)
	updates                 int
}

func (c *mockClient) ListDocuments(context.Context) ([]model.DocumentRef, error) {
	return c.ListDocumentsFunc()
}

func (c *mockClient) UpdateKnowledgeBase(context.Context) (*model.KnowledgeBaseUpdate, error) {
	c.updates++
	return c.UpdateKnowledgeBaseFunc()
}

// first runs cmd and returns the first message that is not a spinner tick.
func first(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		return batch[0]()
	}
	return msg
}

func newModel(c Client) Model {
	return New(c, keys.DefaultKeyMap(), time.Second, nil, 100, 30)
}

func TestLoad_ShowsDocuments(t *testing.T) {
	c := &mockClient{ListDocumentsFunc: func() ([]model.DocumentRef, error) {
		return []model.DocumentRef{{Name: "a.pdf", Path: "/Shared/a.pdf"}, {Name: "b.docx"}}, nil
	}}
	m := newModel(c)

	m, _ = m.Update(first(t, m.Load()))

	require.Len(t, m.Documents(), 2)
	assert.Equal(t, "a.pdf", m.table.Rows()[0][0])
	assert.Equal(t, ui.Info("2 documents indexed."), m.Status())
}

func TestLoad_Error(t *testing.T) {
	c := &mockClient{ListDocumentsFunc: func() ([]model.DocumentRef, error) {
		return nil, errors.New("index missing")
	}}
	m := newModel(c)

	m, _ = m.Update(first(t, m.Load()))

	assert.Equal(t, ui.LevelError, m.Status().Level)
	assert.Contains(t, m.Status().Text, "index missing")
}

func TestUpdate_ReportsCountAndReloads(t *testing.T) {
	c := &mockClient{
		ListDocumentsFunc: func() ([]model.DocumentRef, error) {
			return []model.DocumentRef{{Name: "new.pdf"}}, nil
		},
		UpdateKnowledgeBaseFunc: func() (*model.KnowledgeBaseUpdate, error) {
			return &model.KnowledgeBaseUpdate{Message: "Knowledge base updated", Indexed: 12}, nil
		},
	}
	m := newModel(c)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	m, reload := m.Update(first(t, cmd))

	assert.Equal(t, ui.Success("Knowledge base updated (12 indexed)"), m.Status())
	m, _ = m.Update(first(t, reload))
	require.Len(t, m.Documents(), 1)
	assert.Equal(t, ui.LevelSuccess, m.Status().Level)
}

func TestUpdate_IgnoredWhileRunning(t *testing.T) {
	c := &mockClient{UpdateKnowledgeBaseFunc: func() (*model.KnowledgeBaseUpdate, error) {
		return nil, errors.New("boom")
	}}
	m := newModel(c)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	require.NotNil(t, cmd)
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	assert.Nil(t, again)

	m, _ = m.Update(first(t, cmd))
	assert.Equal(t, ui.LevelError, m.Status().Level)
	assert.Equal(t, 1, c.updates)
}
