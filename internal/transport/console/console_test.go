package console

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/profilebot/internal/session"
)

type echoHandler struct {
	mu   sync.Mutex
	seen []string
}

func (h *echoHandler) OnMessage(_ context.Context, userID, text string) session.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, text)
	return session.Reply{
		Text:     "эхо: " + text,
		Keyboard: [][]string{{"1", "2"}, {"❌ Выйти"}},
	}
}

func newTestModel(h Handler) Model {
	m := newModel(context.Background(), Options{
		Handler: h,
		UserID:  "u1",
		Status: func() Status {
			return Status{Name: "Анна", Answered: 3, Total: 33, Question: "PAEI 4/5"}
		},
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
		m = next.(Model)
	}
	return m
}

func press(m Model, code rune) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyPressMsg{Code: code})
	return next.(Model), cmd
}

func TestModel_TypedAnswerIsSent(t *testing.T) {
	h := &echoHandler{}
	m := newTestModel(h)

	m = typeText(m, "Анна")
	m, cmd := press(m, tea.KeyEnter)
	m = run(t, m, cmd)

	assert.Equal(t, []string{"Анна"}, h.seen)
	require.Len(t, m.entries, 2)
	assert.True(t, m.entries[0].fromUser)
	assert.Equal(t, "эхо: Анна", m.entries[1].text)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, "PAEI 4/5", m.status.Question)
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	h := &echoHandler{}
	m := newTestModel(h)
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, m.entries)
}

func TestModel_KeyboardSelection(t *testing.T) {
	h := &echoHandler{}
	m := newTestModel(h)
	m = run(t, m, m.send("/start"))
	require.False(t, m.keys.Empty())

	m, _ = press(m, tea.KeyTab)
	require.True(t, m.keys.Focused)
	m, _ = press(m, tea.KeyRight)
	m, cmd := press(m, tea.KeyEnter)
	m = run(t, m, cmd)

	assert.Equal(t, []string{"/start", "2"}, h.seen)
	assert.False(t, m.keys.Focused)
}

func TestModel_TabWithoutButtons(t *testing.T) {
	m := newTestModel(&echoHandler{})
	m, _ = press(m, tea.KeyTab)
	assert.False(t, m.keys.Focused)
}

func TestModel_AsyncReplyKeepsKeyboard(t *testing.T) {
	m := newTestModel(&echoHandler{})
	m = run(t, m, m.send("/start"))

	next, _ := m.Update(replyMsg{reply: session.Reply{
		Text:  "Отчёт готов",
		Files: []session.Attachment{{Name: "Анна_short.pdf", Path: "/tmp/a.pdf"}},
	}, async: true})
	m = next.(Model)

	assert.False(t, m.keys.Empty())
	view := m.transcript(80)
	assert.Contains(t, view, "Отчёт готов")
	assert.Contains(t, view, "Анна_short.pdf")
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newTestModel(&echoHandler{})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_View(t *testing.T) {
	m := newTestModel(&echoHandler{})
	m = run(t, m, m.send("/start"))
	v := m.View()
	assert.True(t, v.AltScreen)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	assert.True(t, next.(Model).View().AltScreen)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "c\nd", tail("a\nb\nc\nd", 2))
	assert.Equal(t, "a", tail("a", 5))
	assert.Empty(t, tail("a\nb", 0))
}

func TestConsole_NotifyBeforeRunIsQueued(t *testing.T) {
	c := New(Options{Handler: &echoHandler{}, UserID: "u1"})
	require.NoError(t, c.Notify(context.Background(), "u1", session.Reply{Text: "готово"}))
	require.NoError(t, c.Notify(context.Background(), "other", session.Reply{Text: "чужое"}))
	require.Len(t, c.early, 1)
	assert.True(t, strings.HasPrefix(c.early[0].Text, "готово"))
}
