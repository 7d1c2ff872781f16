package session

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func testMachine(t *testing.T) *Machine {
	t.Helper()
	bank, err := itembank.Load()
	require.NoError(t, err)
	m := NewMachine(bank)
	m.Now = func() time.Time { return fixedNow }
	return m
}

// send applies messages in order and returns the final state.
func send(t *testing.T, m *Machine, s *Session, msgs ...string) (*Session, Reply, Effect) {
	t.Helper()
	var r Reply
	var e Effect
	for _, msg := range msgs {
		s, r, e = m.Handle(s, msg)
	}
	return s, r, e
}

// answerInstrument answers every remaining item of the current instrument
// with value.
func answerInstrument(t *testing.T, m *Machine, s *Session, value string) (*Session, Reply, Effect) {
	t.Helper()
	inst, ok := s.Stage.Instrument()
	require.True(t, ok, "stage %s is not running", s.Stage)
	var r Reply
	var e Effect
	for s.Stage == StageFor(inst) {
		s, r, e = m.Handle(s, value)
		require.NotEqual(t, StageAborted, s.Stage)
	}
	return s, r, e
}

func TestNew(t *testing.T) {
	m := testMachine(t)
	s := m.New("u1")

	assert.Equal(t, StageAwaitName, s.Stage)
	assert.Equal(t, "u1", s.UserID)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, fixedNow, s.CreatedAt)
	assert.NotNil(t, s.Scores)
	assert.NotEqual(t, s.ID, m.New("u1").ID)
}

func TestHandle_NameStartsPAEI(t *testing.T) {
	m := testMachine(t)
	s, r, e := m.Handle(m.New("u1"), "  Alex  ")

	assert.Equal(t, EffectNone, e)
	assert.Equal(t, StageRunPAEI, s.Stage)
	assert.Equal(t, "Alex", s.DisplayName)
	assert.Zero(t, s.Cursor)
	assert.Contains(t, r.Text, "Alex")
	assert.Contains(t, r.Text, "Вопрос 1/5")
	require.Len(t, r.Keyboard, 2)
	assert.ElementsMatch(t, []string{"P", "A", "E", "I"}, r.Keyboard[0])
	assert.Equal(t, []string{AbortButton}, r.Keyboard[1])
}

func TestHandle_EmptyNameReprompts(t *testing.T) {
	m := testMachine(t)
	s, r, _ := m.Handle(m.New("u1"), "   ")
	assert.Equal(t, StageAwaitName, s.Stage)
	assert.Equal(t, m.Greeting(), r)
}

func TestHandle_DoesNotMutateInput(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex", "P")
	before := s.Clone()

	next, _, _ := m.Handle(s, "A")
	assert.Equal(t, before, s)
	assert.Len(t, next.Responses, 2)
	assert.Len(t, s.Responses, 1)
}

func TestHandle_AbortMidSession(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex", "P", "A", "E")
	require.Equal(t, StageRunPAEI, s.Stage)
	require.Equal(t, 3, s.Cursor)

	s, r, e := m.Handle(s, "/cancel")

	assert.Equal(t, StageAborted, s.Stage)
	assert.Equal(t, EffectAborted, e)
	assert.Len(t, s.Responses, 3)
	assert.Empty(t, s.Scores)
	assert.Empty(t, s.Narratives)
	assert.Empty(t, s.Artefacts)
	assert.Contains(t, r.Text, "/start")
}

func TestHandle_AbortTokens(t *testing.T) {
	m := testMachine(t)
	for _, token := range []string{"/cancel", "/exit", AbortButton, "/cancel@profile_bot", "/EXIT"} {
		s, _, _ := send(t, m, m.New("u1"), "Alex", "P")
		s, _, e := m.Handle(s, token)
		assert.Equal(t, StageAborted, s.Stage, token)
		assert.Equal(t, EffectAborted, e, token)
	}

	// Abort while waiting for the name.
	s, _, e := m.Handle(m.New("u1"), AbortButton)
	assert.Equal(t, StageAborted, s.Stage)
	assert.Equal(t, EffectAborted, e)
}

func TestHandle_StartResets(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	s, _, _ = answerInstrument(t, m, s, "P")
	require.Equal(t, StageRunSOFT, s.Stage)

	fresh, r, e := m.Handle(s, "/start")

	assert.Equal(t, EffectReset, e)
	assert.Equal(t, StageAwaitName, fresh.Stage)
	assert.NotEqual(t, s.ID, fresh.ID)
	assert.Equal(t, "u1", fresh.UserID)
	assert.Empty(t, fresh.Responses)
	assert.Empty(t, fresh.Scores)
	assert.Empty(t, fresh.DisplayName)
	assert.Equal(t, m.Greeting(), r)
}

func TestHandle_InvalidLikertDoesNotAdvance(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	s, _, _ = answerInstrument(t, m, s, "P")
	require.Equal(t, StageRunSOFT, s.Stage)

	for _, bad := range []string{"0", "6", "7", "много", ""} {
		next, r, e := m.Handle(s, bad)
		assert.Equal(t, EffectNone, e)
		assert.Equal(t, s.Cursor, next.Cursor, bad)
		assert.Len(t, next.Responses, len(s.Responses), bad)
		assert.Contains(t, r.Text, "от 1 до 5", bad)
		assert.Contains(t, r.Text, "Вопрос 1/10", bad)
	}
}

func TestHandle_InvalidPAEIChoice(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	next, r, _ := m.Handle(s, "X")
	assert.Zero(t, next.Cursor)
	assert.Contains(t, r.Text, "Выберите один из вариантов")
}

func TestHandle_AcceptsLabelsAndCyrillicTags(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex", "Р")
	require.Len(t, s.Responses, 1)
	assert.Equal(t, "P", s.Responses[0].Value)

	s, _, _ = answerInstrument(t, m, s, "A")
	s, _, _ = m.Handle(s, "очень легко")
	assert.Equal(t, "5", s.Responses[len(s.Responses)-1].Value)
}

func TestHandle_FullWalkthrough(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")

	// PAEI answers P, A, E, I, P.
	for i, v := range []string{"P", "A", "E", "I"} {
		var e Effect
		s, _, e = m.Handle(s, v)
		require.Equal(t, EffectNone, e, i)
	}
	s, r, e := m.Handle(s, "P")
	require.Equal(t, EffectNone, e)
	assert.Equal(t, StageRunSOFT, s.Stage)
	assert.Contains(t, r.Text, "Методика PAEI (Адизес) пройдена")
	assert.Contains(t, r.Text, "Soft Skills")

	paei := s.Scores[instrument.PAEI]
	assert.Equal(t, map[instrument.Scale]float64{"P": 2, "A": 1, "E": 1, "I": 1}, paei.Raw)
	assert.Equal(t, map[instrument.Scale]float64{"P": 4, "A": 2, "E": 2, "I": 2}, paei.Normalised)

	s, _, _ = answerInstrument(t, m, s, "4")
	assert.Equal(t, StageRunHEXACO, s.Stage)
	s, _, _ = answerInstrument(t, m, s, "3")
	assert.Equal(t, StageRunDISC, s.Stage)

	var last Effect
	s, r, last = answerInstrument(t, m, s, "5")
	assert.Equal(t, StageCompleted, s.Stage)
	assert.Equal(t, EffectCompleted, last)
	assert.Equal(t, fixedNow, s.CompletedAt)
	assert.Nil(t, r.Keyboard)

	assert.Len(t, s.Responses, m.Bank.Total())
	for _, inst := range instrument.Battery {
		sc, ok := s.Scores[inst]
		require.True(t, ok, inst)
		for _, v := range sc.Normalised {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 10.0)
		}
	}
	for _, v := range s.Scores[instrument.HEXACO].Normalised {
		assert.Equal(t, 6.0, v, "neutral answers stay neutral under reverse scoring")
	}
	for _, v := range s.Scores[instrument.DISC].Normalised {
		assert.Equal(t, 10.0, v)
	}
}

func TestHandle_CompletedIsFrozen(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	for s.Stage != StageCompleted {
		value := "3"
		if s.Stage == StageRunPAEI {
			value = "I"
		}
		s, _, _ = answerInstrument(t, m, s, value)
	}
	s.Pending = false
	before := s.Clone()

	for _, msg := range []string{"5", "Alex", "/cancel", AbortButton, "/help"} {
		next, r, e := m.Handle(s, msg)
		assert.Equal(t, EffectNone, e, msg)
		assert.Equal(t, before, next, msg)
		assert.NotEmpty(t, r.Text)
	}
}

func TestHandle_PendingReport(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	for s.Stage != StageCompleted {
		value := "3"
		if s.Stage == StageRunPAEI {
			value = "E"
		}
		s, _, _ = answerInstrument(t, m, s, value)
	}
	require.True(t, s.Pending)

	next, r, e := m.Handle(s, "5")
	assert.Equal(t, EffectNone, e)
	assert.Equal(t, pendingText, r.Text)
	assert.Equal(t, s, next)

	next, r, e = m.Handle(s, "/cancel")
	assert.Equal(t, EffectAborted, e)
	assert.Equal(t, StageAborted, next.Stage)
	assert.False(t, next.Pending)
	assert.Equal(t, abortedText, r.Text)
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/start"))
	assert.True(t, IsCommand(" /foo "))
	assert.True(t, IsCommand(AbortButton))
	assert.False(t, IsCommand("5"))
	assert.False(t, IsCommand("Иван"))
}

func TestHandle_UnknownCommand(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	next, r, e := m.Handle(s, "/stats")
	assert.Equal(t, EffectNone, e)
	assert.Equal(t, s, next)
	assert.True(t, strings.HasPrefix(r.Text, "Неизвестная команда"))
	assert.Contains(t, r.Text, "Вопрос 1/5")
}

func TestHandle_Help(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex", "P")
	next, r, e := m.Handle(s, "/help")
	assert.Equal(t, EffectNone, e)
	assert.Equal(t, 1, next.Cursor)
	assert.Contains(t, r.Text, "/cancel")
	assert.Contains(t, r.Text, "Вопрос 2/5")
	assert.NotEmpty(t, r.Keyboard)
}

func TestHandle_ScoringFailureAborts(t *testing.T) {
	m := testMachine(t)
	s, _, _ := send(t, m, m.New("u1"), "Alex")
	// A cursor that ran ahead of the recorded responses.
	s.Cursor = m.Bank.Count(instrument.PAEI) - 1

	next, r, e := m.Handle(s, "P")
	assert.Equal(t, StageAborted, next.Stage)
	assert.Equal(t, EffectAborted, e)
	assert.Contains(t, r.Text, "ошибка")
}

func TestProgress(t *testing.T) {
	m := testMachine(t)
	_, ok := m.Progress(m.New("u1"))
	assert.False(t, ok)

	s, _, _ := send(t, m, m.New("u1"), "Alex", "P", "A")
	p, ok := m.Progress(s)
	require.True(t, ok)
	assert.Equal(t, Progress{Instrument: instrument.PAEI, Item: 3, Items: 5, Answered: 2, Total: m.Bank.Total()}, p)
}

func TestKeyboard(t *testing.T) {
	ten := itembank.Item{ID: "soft-x", Kind: instrument.Likert10}
	assert.Equal(t, [][]string{
		{"1", "2", "3", "4", "5"},
		{"6", "7", "8", "9", "10"},
		{AbortButton},
	}, keyboard(ten))

	five := itembank.Item{ID: "hexaco-x", Kind: instrument.Likert5}
	assert.Equal(t, [][]string{{"1", "2", "3", "4", "5"}, {AbortButton}}, keyboard(five))
}

func TestHandle_AnchorLabelledItemKeepsEveryPoint(t *testing.T) {
	fsys := fstest.MapFS{
		"paei.txt":   {Data: []byte("1. Q\n    P: p\n    A: a\n    E: e\n    I: i\n")},
		"disc.txt":   {Data: []byte("1.1 d\n1.2 d\n2.1 i\n2.2 i\n3.1 s\n3.2 s\n4.1 c\n4.2 c\n")},
		"hexaco.txt": {Data: []byte("1. [H] h\n2. [E] e\n3. [X] x\n4. [A] a\n5. [C] c\n6. [O] o\n")},
		"soft.txt":   {Data: []byte("1. [Лидерство] Q\n    1: совсем нет\n    5: полностью\n")},
	}
	bank, err := itembank.LoadFS(fsys, itembank.Rules{})
	require.NoError(t, err)
	m := NewMachine(bank)

	s, r, _ := send(t, m, m.New("u1"), "Alex", "P")
	require.Equal(t, StageRunSOFT, s.Stage)
	assert.Equal(t, [][]string{{"1", "2", "3", "4", "5"}, {AbortButton}}, r.Keyboard)
	assert.Contains(t, r.Text, "1: совсем нет")
	assert.Contains(t, r.Text, "5: полностью")

	s, _, _ = send(t, m, s, "3")
	assert.Equal(t, StageRunHEXACO, s.Stage)
}

func TestStage(t *testing.T) {
	for _, inst := range instrument.Battery {
		got, ok := StageFor(inst).Instrument()
		assert.True(t, ok)
		assert.Equal(t, inst, got)
	}
	_, ok := StageAwaitName.Instrument()
	assert.False(t, ok)
	assert.True(t, StageCompleted.Terminal())
	assert.True(t, StageAborted.Terminal())
	assert.False(t, StageRunDISC.Terminal())
}
