// Package console runs a respondent session in the terminal, for local
// runs and demos. It talks to the same runtime as the chat transports.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/profilebot/internal/session"
	"github.com/abhisek/profilebot/internal/ui/components"
	"github.com/abhisek/profilebot/internal/ui/layout"
	"github.com/abhisek/profilebot/internal/ui/theme"
)

// Handler answers one inbound chat message.
type Handler interface {
	OnMessage(ctx context.Context, userID, text string) session.Reply
}

// Status is what the header shows.
type Status struct {
	Name     string
	Answered int
	Total    int
	// Question is e.g. "PAEI 3/5"; empty outside the running stages.
	Question string
}

// Options configures a console.
type Options struct {
	Handler Handler
	UserID  string
	// Status is polled after every reply. Optional.
	Status func() Status
}

type replyMsg struct {
	reply session.Reply
	async bool
}

type entry struct {
	fromUser bool
	text     string
	files    []session.Attachment
	async    bool
}

// Model is the chat screen.
type Model struct {
	opts    Options
	ctx     context.Context
	entries []entry
	input   components.TextInput
	keys    components.Keyboard
	status  Status
	width   int
	height  int
}

func newModel(ctx context.Context, opts Options) Model {
	return Model{
		opts:  opts,
		ctx:   ctx,
		input: components.NewTextInput("Ваш ответ", 200),
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{reply: m.opts.Handler.OnMessage(m.ctx, m.opts.UserID, text)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.input.Init(), m.send("/start"))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case replyMsg:
		m.entries = append(m.entries, entry{text: msg.reply.Text, files: msg.reply.Files, async: msg.async})
		if !msg.async || len(msg.reply.Keyboard) > 0 {
			m.keys = components.NewKeyboard(msg.reply.Keyboard)
		}
		if m.opts.Status != nil {
			m.status = m.opts.Status()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.keys.Focused = !m.keys.Focused && !m.keys.Empty()
			return m, nil
		case "enter":
			return m.submit()
		}
		if m.keys.Focused {
			var cmd tea.Cmd
			m.keys, cmd = m.keys.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.keys.Focused {
		text, _ = m.keys.Selected()
		m.keys.Focused = false
	}
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.entries = append(m.entries, entry{fromUser: true, text: text})
	return m, m.send(text)
}

var hints = []layout.KeyHint{
	{Key: "Enter", Description: "Отправить"},
	{Key: "Tab", Description: "Кнопки"},
	{Key: "←→↑↓", Description: "Выбор кнопки"},
	{Key: "Ctrl+C", Description: "Выход"},
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	frame := layout.Frame{Respondent: m.status.Name, Status: m.status.Question, Hints: hints}

	var bottom []string
	if m.status.Total > 0 {
		bar := components.Progress{Label: "Ответы", Done: m.status.Answered, Total: m.status.Total, Width: m.width - 4}
		bottom = append(bottom, bar.View())
	}
	if !m.keys.Empty() {
		bottom = append(bottom, m.keys.View())
	}
	bottom = append(bottom, m.input.View())
	controls := lipgloss.JoinVertical(lipgloss.Left, bottom...)

	room := frame.BodyHeight(m.width, m.height) - lipgloss.Height(controls) - 1
	body := tail(m.transcript(m.width-2), max(room, 0)) + "\n" + controls

	v.SetContent(frame.Render(body, m.width, m.height))
	return v
}

func (m Model) transcript(width int) string {
	body := lipgloss.NewStyle().Foreground(theme.Text).Width(width)
	var b strings.Builder
	for _, e := range m.entries {
		switch {
		case e.fromUser:
			b.WriteString(theme.UserName.Render("Вы") + "\n")
		case e.async:
			b.WriteString(theme.Notice.Render("Profilebot · отчёт") + "\n")
		default:
			b.WriteString(theme.BotName.Render("Profilebot") + "\n")
		}
		b.WriteString(body.Render(e.text) + "\n")
		for _, f := range e.files {
			b.WriteString(theme.Hint.Render(fmt.Sprintf("файл: %s (%s)", f.Name, f.Path)) + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Console owns the terminal program. It implements bot.Notifier for the
// final report reply.
type Console struct {
	opts Options

	mu      sync.Mutex
	program *tea.Program
	early   []session.Reply
}

func New(opts Options) *Console {
	return &Console{opts: opts}
}

// Notify delivers an asynchronous reply for the console's user.
func (c *Console) Notify(_ context.Context, userID string, r session.Reply) error {
	if userID != c.opts.UserID {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.program == nil {
		c.early = append(c.early, r)
		return nil
	}
	c.program.Send(replyMsg{reply: r, async: true})
	return nil
}

// Run blocks until the user quits or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	p := tea.NewProgram(newModel(ctx, c.opts), tea.WithContext(ctx))

	c.mu.Lock()
	c.program = p
	early := c.early
	c.early = nil
	c.mu.Unlock()
	for _, r := range early {
		go p.Send(replyMsg{reply: r, async: true})
	}

	_, err := p.Run()
	c.mu.Lock()
	c.program = nil
	c.mu.Unlock()
	return err
}
