// Package report composes the respondent and analyst PDF reports of a
// completed session and publishes them to the archive.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/abhisek/profilebot/internal/chart"
	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/synth"
)

// Variant selects the audience of a report.
type Variant string

const (
	// Short is the respondent copy.
	Short Variant = "short"
	// Full is the analyst copy with the answer appendix.
	Full Variant = "full"
)

// Page geometry in millimetres.
const (
	pageW        = 210.0
	pageH        = 297.0
	margin       = 20.0
	contentW     = pageW - 2*margin
	stampY       = 10.0
	chartWidthMM = 110.0
	lineH        = 5.5
)

// AnswerRow is one line of the analyst appendix.
type AnswerRow struct {
	ItemID   string
	Question string
	Answer   string
}

// Input is everything a report shows.
type Input struct {
	UserID      string
	Name        string
	CompletedAt time.Time
	Scores      map[instrument.Instrument]instrument.Scores
	Narratives  synth.Narratives
	// Answers feeds the analyst appendix. Ignored by the short variant.
	Answers map[instrument.Instrument][]AnswerRow
}

// Document is one finished PDF.
type Document struct {
	Variant  Variant
	Path     string
	Filename string
	Pages    int
	// Stamps are the page labels drawn, in page order.
	Stamps []string
}

// Artefacts are the two PDFs of a session inside their work directory.
type Artefacts struct {
	Dir         string
	UserID      string
	CompletedAt time.Time
	Short       Document
	Full        Document
}

// Cleanup removes the work directory when nothing is left in it.
func (a *Artefacts) Cleanup() error {
	err := os.Remove(a.Dir)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	entries, rerr := os.ReadDir(a.Dir)
	if rerr == nil && len(entries) > 0 {
		return nil
	}
	return err
}

// Options configures a Composer.
type Options struct {
	// Fonts defaults to FindFonts().
	Fonts Fonts
	Bands *synth.Bands
	// ScratchDir holds per-session work directories. Default
	// $TMPDIR/profilebot.
	ScratchDir string
	// ChartInches is the rendered chart edge. Default 5.
	ChartInches float64
}

// Composer builds report PDFs. It is safe for concurrent use.
type Composer struct {
	fonts   Fonts
	bands   *synth.Bands
	scratch string
	chart   chart.Options
	log     *slog.Logger
}

// NewComposer validates options and prepares the scratch directory.
func NewComposer(opts Options) (*Composer, error) {
	if opts.Bands == nil {
		return nil, errors.New("report: band table is required")
	}
	if opts.Fonts.Regular == nil || opts.Fonts.Bold == nil {
		opts.Fonts = FindFonts()
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = filepath.Join(os.TempDir(), "profilebot")
	}
	if err := os.MkdirAll(opts.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: scratch dir: %w", err)
	}
	c := &Composer{
		fonts:   opts.Fonts,
		bands:   opts.Bands,
		scratch: opts.ScratchDir,
		chart:   chart.Options{SizeInches: opts.ChartInches},
		log:     logging.New("report"),
	}
	c.log.Debug("report fonts", "family", c.fonts.Family, "source", c.fonts.Source)
	return c, nil
}

// ScratchDir returns the directory work directories are created in.
func (c *Composer) ScratchDir() string { return c.scratch }

// Compose renders the charts and both PDFs into a fresh work directory.
// Charts are removed once the PDFs are written; the PDFs stay until
// published.
func (c *Composer) Compose(ctx context.Context, in Input) (*Artefacts, error) {
	for _, inst := range instrument.Battery {
		if in.Scores[inst].Empty() {
			return nil, fmt.Errorf("compose report: no scores for %s", inst)
		}
	}
	if in.CompletedAt.IsZero() {
		in.CompletedAt = time.Now()
	}

	dir, err := os.MkdirTemp(c.scratch, workDirPrefix(in.UserID, in.CompletedAt))
	if err != nil {
		return nil, fmt.Errorf("compose report: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(dir)
		}
	}()

	charts := make(map[instrument.Instrument]string, len(instrument.Battery))
	for _, inst := range instrument.Battery {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, "chart-"+inst.Key()+".png")
		if err := chart.WriteFile(path, in.Scores[inst], c.chart); err != nil {
			return nil, fmt.Errorf("compose report: %s chart: %w", inst, err)
		}
		charts[inst] = path
	}

	a := &Artefacts{Dir: dir, UserID: in.UserID, CompletedAt: in.CompletedAt}
	for _, v := range []Variant{Short, Full} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := c.write(dir, in, v, charts)
		if err != nil {
			return nil, err
		}
		if v == Short {
			a.Short = doc
		} else {
			a.Full = doc
		}
	}

	for _, path := range charts {
		os.Remove(path)
	}
	ok = true
	c.log.Info("report composed", "user", in.UserID, "dir", dir, "short_pages", a.Short.Pages, "full_pages", a.Full.Pages)
	return a, nil
}

func (c *Composer) write(dir string, in Input, v Variant, charts map[instrument.Instrument]string) (Document, error) {
	pdf, stamps, err := c.render(in, v, charts)
	if err != nil {
		return Document{}, err
	}
	name := Filename(in.CompletedAt, in.Name, v)
	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return Document{}, fmt.Errorf("compose report: write %s: %w", name, err)
	}
	return Document{Variant: v, Path: path, Filename: name, Pages: len(stamps), Stamps: stamps}, nil
}

// render lays the document out twice: the first pass only counts pages so
// the second can stamp the total on every page.
func (c *Composer) render(in Input, v Variant, charts map[instrument.Instrument]string) (*fpdf.Fpdf, []string, error) {
	probe, _ := c.build(in, v, charts, 0)
	if err := probe.Error(); err != nil {
		return nil, nil, fmt.Errorf("compose %s report: %w", v, err)
	}
	total := probe.PageCount()

	pdf, stamps := c.build(in, v, charts, total)
	if err := pdf.Error(); err != nil {
		return nil, nil, fmt.Errorf("compose %s report: %w", v, err)
	}
	if pdf.PageCount() != total {
		return nil, nil, fmt.Errorf("compose %s report: page count changed between passes (%d, %d)", v, total, pdf.PageCount())
	}
	return pdf, stamps, nil
}

// PageStamp is the label drawn in the top-right corner of page x of n.
func PageStamp(x, n int) string {
	return fmt.Sprintf("Стр. %d из %d", x, n)
}

func (c *Composer) build(in Input, v Variant, charts map[instrument.Instrument]string, total int) (*fpdf.Fpdf, []string) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddUTF8FontFromBytes(c.fonts.Family, "", c.fonts.Regular)
	pdf.AddUTF8FontFromBytes(c.fonts.Family, "B", c.fonts.Bold)
	pdf.SetTitle(docTitle+": "+in.Name, true)
	pdf.SetAuthor("profilebot", true)
	pdf.SetCreator("profilebot", true)
	pdf.SetCreationDate(in.CompletedAt)

	w := &writer{pdf: pdf, family: c.fonts.Family}
	var stamps []string
	pdf.SetHeaderFunc(func() {
		stamp := PageStamp(pdf.PageNo(), total)
		stamps = append(stamps, stamp)
		pdf.SetFont(w.family, "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.SetXY(margin, stampY)
		pdf.CellFormat(contentW, 5, stamp, "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(margin, margin)
	})

	pdf.AddPage()
	c.titleBlock(w, in, v)
	w.h2(overallTitle)
	w.narrative(in.Narratives[synth.Overall])

	for _, inst := range instrument.Battery {
		sc := in.Scores[inst]
		pdf.AddPage()
		w.h2(inst.Title())
		w.h3(methodHeading)
		w.paragraph(methodology[inst])
		w.h3(legendHeading)
		w.paragraph(c.legend(inst, sc))
		w.h3(resultsHeading)
		c.resultsTable(w, sc)
		w.image(charts[inst], chartWidthMM)
		w.h3(narrativeHeader)
		w.narrative(in.Narratives[synth.Section(inst)])
	}

	if v == Full {
		pdf.AddPage()
		w.h2(appendixTitle)
		for _, inst := range instrument.Battery {
			w.h3(inst.Title())
			answersTable(w, in.Answers[inst])
		}
	}
	return pdf, stamps
}

func (c *Composer) titleBlock(w *writer, in Input, v Variant) {
	pdf := w.pdf
	pdf.SetFont(w.family, "B", 18)
	pdf.MultiCell(contentW, 9, docTitle, "", "L", false)
	pdf.Ln(4)

	titles := make([]string, 0, len(instrument.Battery))
	answered := 0
	for _, inst := range instrument.Battery {
		titles = append(titles, inst.Title())
		answered += in.Scores[inst].Answered
	}

	w.keyValue("Респондент", in.Name)
	w.keyValue("Дата тестирования", in.CompletedAt.Format("02.01.2006"))
	w.keyValue("Методики", fmt.Sprintf("%d (%s), вопросов: %d", len(titles), strings.Join(titles, ", "), answered))
	if v == Full {
		w.keyValue("Экземпляр", "полный, для аналитика")
	} else {
		w.keyValue("Экземпляр", "для респондента")
	}
	pdf.Ln(6)
}

func (c *Composer) legend(inst instrument.Instrument, sc instrument.Scores) string {
	var first instrument.Scale
	if len(sc.Scales) > 0 {
		first = sc.Scales[0]
	}
	bands := c.bands.Table(inst, first)
	parts := make([]string, 0, len(bands))
	for _, b := range bands {
		parts = append(parts, fmt.Sprintf("%s-%s: %s", instrument.FormatValue(b.Low), instrument.FormatValue(b.High), b.Level))
	}
	return "Баллы приведены к шкале от 0 до 10. " + strings.Join(parts, "; ") + "."
}

func (c *Composer) resultsTable(w *writer, sc instrument.Scores) {
	widths := []float64{95, 30, 45}
	w.tableHeader(widths, "Шкала", "Балл (0-10)", "Уровень")
	for _, scale := range sc.Scales {
		v := sc.Normalised[scale]
		w.row(widths,
			scaleLabel(sc.Instrument, scale),
			instrument.FormatValue(v),
			c.bands.Lookup(sc.Instrument, scale, v).Level)
	}
	w.pdf.Ln(4)
}

func answersTable(w *writer, rows []AnswerRow) {
	if len(rows) == 0 {
		w.paragraph("Нет ответов.")
		return
	}
	widths := []float64{24, 116, 30}
	w.tableHeader(widths, "№", "Вопрос", "Ответ")
	for _, r := range rows {
		w.row(widths, r.ItemID, r.Question, r.Answer)
	}
	w.pdf.Ln(4)
}

func scaleLabel(inst instrument.Instrument, sc instrument.Scale) string {
	name := instrument.ScaleName(inst, sc)
	if name == string(sc) {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, sc)
}
