// Package session drives one respondent through the battery. Machine.Handle
// is a pure transition: it returns a new session and never changes its
// input.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/scoring"
)

// AbortButton is the label of the abort key shown under every question.
const AbortButton = "❌ Выйти"

// maxNameLen caps the stored display name.
const maxNameLen = 100

// Effect tells the runtime what a transition requires beyond the reply.
type Effect int

const (
	EffectNone      Effect = iota
	EffectCompleted        // Start the completion pipeline
	EffectAborted          // Cancel in-flight work of the old session
	EffectReset            // The old session was replaced by a fresh one
)

func (e Effect) String() string {
	switch e {
	case EffectCompleted:
		return "completed"
	case EffectAborted:
		return "aborted"
	case EffectReset:
		return "reset"
	}
	return "none"
}

// Attachment is a local file sent with a reply.
type Attachment struct {
	Path string
	Name string
	MIME string
}

// Reply is what the transport delivers for one inbound message.
type Reply struct {
	Text string
	// Keyboard is an ordered list of button rows.
	Keyboard [][]string
	Files    []Attachment
}

// InputError is an answer that does not fit the current item.
type InputError struct {
	ItemID string
	Input  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid answer %q to item %s", e.Input, e.ItemID)
}

// Machine applies inbound messages to sessions.
type Machine struct {
	Bank *itembank.Bank
	// Now defaults to time.Now.
	Now func() time.Time

	log *slog.Logger
}

// NewMachine returns a Machine over bank.
func NewMachine(bank *itembank.Bank) *Machine {
	return &Machine{Bank: bank, Now: time.Now, log: logging.New("session")}
}

func (m *Machine) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Machine) logger() *slog.Logger {
	if m.log != nil {
		return m.log
	}
	return logging.New("session")
}

// New creates a session waiting for the respondent's name.
func (m *Machine) New(userID string) *Session {
	return newSession(userID, m.now())
}

// Greeting is the reply that opens a session.
func (m *Machine) Greeting() Reply {
	return Reply{Text: greetingText, Keyboard: [][]string{{AbortButton}}}
}

type command int

const (
	cmdNone command = iota
	cmdStart
	cmdHelp
	cmdAbort
	cmdUnknown
)

// IsCommand reports whether text is a chat command or the abort button
// rather than an answer.
func IsCommand(text string) bool {
	return parseCommand(strings.TrimSpace(text)) != cmdNone
}

func parseCommand(text string) command {
	if text == AbortButton {
		return cmdAbort
	}
	if !strings.HasPrefix(text, "/") {
		return cmdNone
	}
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	switch strings.ToLower(name) {
	case "/start":
		return cmdStart
	case "/help":
		return cmdHelp
	case "/cancel", "/exit":
		return cmdAbort
	}
	return cmdUnknown
}

// Handle applies one inbound message to s, which must not be nil.
func (m *Machine) Handle(s *Session, text string) (*Session, Reply, Effect) {
	text = strings.TrimSpace(text)
	ns := s.Clone()

	switch parseCommand(text) {
	case cmdStart:
		return m.New(s.UserID), m.Greeting(), EffectReset
	case cmdHelp:
		r := m.Prompt(ns)
		r.Text = helpText + "\n\n" + r.Text
		return ns, r, EffectNone
	case cmdAbort:
		if ns.Stage.Terminal() && !ns.Pending {
			return ns, Reply{Text: finishedText}, EffectNone
		}
		ns.Stage = StageAborted
		ns.Pending = false
		m.logger().Info("session aborted", "session", ns.ID, "user", ns.UserID, "answered", len(ns.Responses))
		return ns, Reply{Text: abortedText}, EffectAborted
	case cmdUnknown:
		r := m.Prompt(ns)
		r.Text = unknownCommandText + "\n\n" + r.Text
		return ns, r, EffectNone
	}

	switch {
	case ns.Pending:
		return ns, Reply{Text: pendingText, Keyboard: [][]string{{AbortButton}}}, EffectNone
	case ns.Stage.Terminal():
		return ns, Reply{Text: finishedText}, EffectNone
	case ns.Stage == StageAwaitName:
		return m.handleName(ns, text)
	}
	return m.handleAnswer(ns, text)
}

func (m *Machine) handleName(s *Session, text string) (*Session, Reply, Effect) {
	if text == "" {
		return s, m.Greeting(), EffectNone
	}
	if utf8.RuneCountInString(text) > maxNameLen {
		text = string([]rune(text)[:maxNameLen])
	}
	s.DisplayName = text
	s.Stage = StageRunPAEI
	s.Cursor = 0

	r := m.Prompt(s)
	r.Text = fmt.Sprintf("Приятно познакомиться, %s!\n\n%s\n\n%s", text, handoffText(instrument.PAEI), r.Text)
	return s, r, EffectNone
}

func (m *Machine) handleAnswer(s *Session, text string) (*Session, Reply, Effect) {
	inst, _ := s.Stage.Instrument()
	items := m.Bank.ItemsFor(inst)
	if s.Cursor >= len(items) {
		// Only reachable with a bank that shrank under a live session.
		return m.abortOnScoring(s, inst, fmt.Errorf("cursor %d past %d items", s.Cursor, len(items)))
	}
	it := items[s.Cursor]

	value, ok := it.ParseAnswer(text)
	if !ok {
		err := &InputError{ItemID: it.ID, Input: text}
		m.logger().Debug("invalid answer", "session", s.ID, "err", err)
		r := m.Prompt(s)
		r.Text = invalidAnswerText(it) + "\n\n" + r.Text
		return s, r, EffectNone
	}

	s.Responses = append(s.Responses, instrument.Response{ItemID: it.ID, Value: value, At: m.now()})
	s.Cursor++
	if s.Cursor < len(items) {
		return s, m.Prompt(s), EffectNone
	}

	scores, err := scoring.Score(inst, items, responsesFor(m.Bank, s, inst))
	if err != nil {
		return m.abortOnScoring(s, inst, err)
	}
	s.Scores[inst] = scores

	nextInst, ok := next(inst)
	if !ok {
		s.Stage = StageCompleted
		s.CompletedAt = m.now()
		s.Cursor = 0
		s.Pending = true
		m.logger().Info("session completed", "session", s.ID, "user", s.UserID, "answered", len(s.Responses))
		return s, Reply{Text: completedText}, EffectCompleted
	}

	s.Stage = StageFor(nextInst)
	s.Cursor = 0
	r := m.Prompt(s)
	r.Text = fmt.Sprintf("Методика %s пройдена.\n\n%s\n\n%s", inst.Title(), handoffText(nextInst), r.Text)
	return s, r, EffectNone
}

func (m *Machine) abortOnScoring(s *Session, inst instrument.Instrument, err error) (*Session, Reply, Effect) {
	m.logger().Error("scoring failed, aborting session", "session", s.ID, "instrument", inst, "err", err)
	s.Stage = StageAborted
	return s, Reply{Text: scoringFailedText}, EffectAborted
}

// Prompt is the reply that shows the session's current question, or the
// stage's standing message outside the running stages.
func (m *Machine) Prompt(s *Session) Reply {
	switch s.Stage {
	case StageAwaitName:
		return m.Greeting()
	case StageCompleted, StageAborted:
		return Reply{Text: finishedText}
	}

	inst, _ := s.Stage.Instrument()
	items := m.Bank.ItemsFor(inst)
	if s.Cursor >= len(items) {
		return Reply{Text: finishedText}
	}
	it := items[s.Cursor]
	p, _ := m.Progress(s)
	return Reply{
		Text:     questionText(it, p),
		Keyboard: keyboard(it),
	}
}
