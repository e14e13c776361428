package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdesk/internal/keys"
	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/ui"
)

type mockAsker struct {
	mu        sync.Mutex
	AskFunc   func(query, history string) (*model.ChatAnswer, error)
	histories []string
}

func (a *mockAsker) Ask(_ context.Context, query, history string) (*model.ChatAnswer, error) {
	a.mu.Lock()
	a.histories = append(a.histories, history)
	a.mu.Unlock()
	return a.AskFunc(query, history)
}

func echoAsker() *mockAsker {
	return &mockAsker{
		AskFunc: func(query, _ string) (*model.ChatAnswer, error) {
			return &model.ChatAnswer{
				Response: "answer to " + query,
				Sources:  []model.DocumentRef{{Name: "Handbook.pdf", WebURL: "https://sp.example.com/Handbook.pdf"}},
			}, nil
		},
	}
}

func newTestModel(a Asker, dir string) Model {
	return New(a, keys.DefaultKeyMap(), Options{ExportDir: dir}, 100, 30)
}

// askAndWait types text, presses enter and returns the pending answer message.
func askAndWait(t *testing.T, m Model, text string) (Model, tea.Msg) {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if msg, ok := c().(answerMsg); ok {
			return m, msg
		}
	}
	t.Fatal("no answer message produced")
	return m, nil
}

func TestAsk_AppendsExchangeOnSuccess(t *testing.T) {
	a := echoAsker()
	m := newTestModel(a, t.TempDir())

	m, msg := askAndWait(t, m, "What is the leave policy?")
	assert.True(t, m.Waiting())

	m, _ = m.Update(msg)
	assert.False(t, m.Waiting())
	require.Equal(t, 2, m.History().Len())
	turns := m.History().Turns()
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "answer to What is the leave policy?", turns[1].Content)
	assert.Contains(t, m.renderConversation(), "Handbook.pdf")

	m, msg = askAndWait(t, m, "And sick leave?")
	m, _ = m.Update(msg)
	assert.Equal(t, 4, m.History().Len())
	assert.Equal(t, []string{
		"",
		"User: What is the leave policy?\nAssistant: answer to What is the leave policy?",
	}, a.histories)
}

func TestAsk_ErrorLeavesHistoryUnchanged(t *testing.T) {
	a := &mockAsker{AskFunc: func(string, string) (*model.ChatAnswer, error) {
		return nil, errors.New("index unavailable")
	}}
	m := newTestModel(a, t.TempDir())

	m, msg := askAndWait(t, m, "hello")
	m, _ = m.Update(msg)

	assert.False(t, m.Waiting())
	assert.Equal(t, 0, m.History().Len())
	assert.Contains(t, m.renderConversation(), "index unavailable")
}

func TestAsk_IgnoredWhileWaitingOrBlank(t *testing.T) {
	m := newTestModel(echoAsker(), t.TempDir())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m, _ = askAndWait(t, m, "first")
	m.input.SetValue("second")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestClear_DropsLateAnswer(t *testing.T) {
	m := newTestModel(echoAsker(), t.TempDir())

	m, msg := askAndWait(t, m, "question")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.Equal(t, ui.StatusMsg{Status: ui.Info("Conversation cleared.")}, cmd())

	m, _ = m.Update(msg)
	assert.Equal(t, 0, m.History().Len())
	assert.Empty(t, m.messages)
	assert.False(t, m.Waiting())
}

func TestHistory_BoundedAcrossManyQuestions(t *testing.T) {
	m := newTestModel(echoAsker(), t.TempDir())

	for i := 0; i < 15; i++ {
		var msg tea.Msg
		m, msg = askAndWait(t, m, "q")
		m, _ = m.Update(msg)
	}
	assert.Equal(t, 20, m.History().Len())
}

func TestExport_WritesEscapedTranscript(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(echoAsker(), dir)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	m, msg := askAndWait(t, m, "<b>hi</b>")
	m, _ = m.Update(msg)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	exported, ok := cmd().(exportedMsg)
	require.True(t, ok)
	require.NoError(t, exported.err)
	assert.Equal(t, filepath.Join(dir, "chat-transcript-20240501-093000.html"), exported.path)

	data, err := os.ReadFile(exported.path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;")
	assert.True(t, strings.Contains(html, `href="https://sp.example.com/Handbook.pdf"`))

	_, cmd = m.Update(exported)
	status := cmd().(ui.StatusMsg)
	assert.Equal(t, ui.LevelSuccess, status.Status.Level)
}

func TestExport_NothingToExport(t *testing.T) {
	m := newTestModel(echoAsker(), t.TempDir())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	status := cmd().(ui.StatusMsg)
	assert.Equal(t, ui.LevelWarning, status.Status.Level)
}

func TestEscClosesPanel(t *testing.T) {
	m := newTestModel(echoAsker(), t.TempDir())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ChatCloseMsg{}, cmd())
}
