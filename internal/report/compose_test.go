package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
	"github.com/abhisek/profilebot/internal/synth"
)

var completedAt = time.Date(2026, time.October, 15, 14, 5, 9, 0, time.UTC)

func scoresOf(inst instrument.Instrument, scales []instrument.Scale, values ...float64) instrument.Scores {
	s := instrument.Scores{
		Instrument: inst,
		Scales:     scales,
		Raw:        map[instrument.Scale]float64{},
		Normalised: map[instrument.Scale]float64{},
		Answered:   len(scales),
	}
	for i, sc := range scales {
		s.Raw[sc] = values[i]
		s.Normalised[sc] = values[i]
	}
	return s
}

func testInput(t *testing.T) Input {
	t.Helper()
	soft := []instrument.Scale{
		"Коммуникация", "Работа в команде", "Эмоциональный интеллект", "Управление временем",
		"Критическое мышление", "Адаптивность", "Лидерство", "Решение проблем", "Креативность",
		"Стрессоустойчивость",
	}
	in := Input{
		UserID:      "u-42",
		Name:        "Анна Петрова",
		CompletedAt: completedAt,
		Scores: map[instrument.Instrument]instrument.Scores{
			instrument.PAEI:   scoresOf(instrument.PAEI, instrument.PAEI.FixedScales(), 4, 2, 2, 2),
			instrument.SOFT:   scoresOf(instrument.SOFT, soft, 8, 6, 4, 2, 10, 8, 6, 4, 2, 10),
			instrument.HEXACO: scoresOf(instrument.HEXACO, instrument.HEXACO.FixedScales(), 6, 6, 8, 4, 10, 2),
			instrument.DISC:   scoresOf(instrument.DISC, instrument.DISC.FixedScales(), 10, 2, 6, 8),
		},
	}

	s, err := synth.New(synth.Options{})
	require.NoError(t, err)
	in.Narratives, err = s.Synthesise(context.Background(), synth.Input{Scores: in.Scores})
	require.NoError(t, err)

	bank, err := itembank.Load()
	require.NoError(t, err)
	in.Answers = map[instrument.Instrument][]AnswerRow{}
	for _, inst := range instrument.Battery {
		var responses []instrument.Response
		for _, it := range bank.ItemsFor(inst) {
			responses = append(responses, instrument.Response{ItemID: it.ID, Value: it.Options()[0].Token})
		}
		in.Answers[inst] = AnswerRows(bank.ItemsFor(inst), responses)
	}
	return in
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	bands, err := synth.LoadBands()
	require.NoError(t, err)
	c, err := NewComposer(Options{
		Fonts:       BuiltinFonts(),
		Bands:       bands,
		ScratchDir:  t.TempDir(),
		ChartInches: 2,
	})
	require.NoError(t, err)
	return c
}

func TestCompose_BothVariants(t *testing.T) {
	c := newTestComposer(t)
	a, err := c.Compose(context.Background(), testInput(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(a.Dir), "u_42-20261015-140509-"), a.Dir)
	assert.Equal(t, "2026-10-15_14-05-09_Анна_Петрова_short.pdf", a.Short.Filename)
	assert.Equal(t, "2026-10-15_14-05-09_Анна_Петрова_full.pdf", a.Full.Filename)

	for _, doc := range []Document{a.Short, a.Full} {
		data, err := os.ReadFile(doc.Path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), doc.Variant)
	}

	// Title page plus one fresh page per instrument at least.
	assert.GreaterOrEqual(t, a.Short.Pages, 1+len(instrument.Battery))
	assert.Greater(t, a.Full.Pages, a.Short.Pages, "analyst copy carries the appendix")

	entries, err := os.ReadDir(a.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, ".png", filepath.Ext(e.Name()), "chart %s left in work dir", e.Name())
	}
}

func TestCompose_PageStampsKnowTotal(t *testing.T) {
	c := newTestComposer(t)
	a, err := c.Compose(context.Background(), testInput(t))
	require.NoError(t, err)

	for _, doc := range []Document{a.Short, a.Full} {
		data, err := os.ReadFile(doc.Path)
		require.NoError(t, err)
		pages := pdfPageCount(data)
		require.Positive(t, pages)
		assert.Equal(t, pages, doc.Pages, doc.Variant)
		require.Len(t, doc.Stamps, pages, doc.Variant)
		for i, stamp := range doc.Stamps {
			assert.Equal(t, fmt.Sprintf("Стр. %d из %d", i+1, pages), stamp)
		}
	}
	assert.Equal(t, "Стр. 1 из 7", PageStamp(1, 7))
}

func TestCompose_Deterministic(t *testing.T) {
	c := newTestComposer(t)
	in := testInput(t)
	a, err := c.Compose(context.Background(), in)
	require.NoError(t, err)
	b, err := c.Compose(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir, b.Dir, "work dirs must not collide")
	assert.Equal(t, a.Short.Stamps, b.Short.Stamps)
	assert.Equal(t, a.Full.Stamps, b.Full.Stamps)
}

func TestCompose_MissingScores(t *testing.T) {
	c := newTestComposer(t)
	in := testInput(t)
	delete(in.Scores, instrument.DISC)
	_, err := c.Compose(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISC")
}

func TestCompose_CancelledRemovesWorkDir(t *testing.T) {
	c := newTestComposer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Compose(ctx, testInput(t))
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(c.ScratchDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompose_EmptyNarrative(t *testing.T) {
	c := newTestComposer(t)
	in := testInput(t)
	in.Narratives[synth.Overall] = ""
	_, err := c.Compose(context.Background(), in)
	require.NoError(t, err)
}

func TestArtefactsCleanup(t *testing.T) {
	c := newTestComposer(t)
	a, err := c.Compose(context.Background(), testInput(t))
	require.NoError(t, err)

	require.NoError(t, a.Cleanup())
	assert.DirExists(t, a.Dir, "dir with PDFs is kept")

	require.NoError(t, os.Remove(a.Short.Path))
	require.NoError(t, os.Remove(a.Full.Path))
	require.NoError(t, a.Cleanup())
	assert.NoDirExists(t, a.Dir)
	require.NoError(t, a.Cleanup())
}

func TestAnswerRows(t *testing.T) {
	bank, err := itembank.Load()
	require.NoError(t, err)

	paei := bank.ItemsFor(instrument.PAEI)
	rows := AnswerRows(paei, []instrument.Response{
		{ItemID: paei[0].ID, Value: "E"},
		{ItemID: "paei-999", Value: "P"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, paei[0].Text, rows[0].Question)
	assert.Equal(t, "E (Предприниматель)", rows[0].Answer)
	assert.Empty(t, rows[1].Question)

	hexaco := bank.ItemsFor(instrument.HEXACO)
	rows = AnswerRows(hexaco, []instrument.Response{{ItemID: hexaco[0].ID, Value: "4"}})
	assert.True(t, strings.HasPrefix(rows[0].Answer, "4"), rows[0].Answer)
}

// pdfPageCount counts the page objects of a written PDF. The page tree root
// is "/Type /Pages" and does not match.
func pdfPageCount(data []byte) int {
	return bytes.Count(data, []byte("/Type /Page\n"))
}
