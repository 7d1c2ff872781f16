package report

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

// writer draws text primitives in one font family.
type writer struct {
	pdf    *fpdf.Fpdf
	family string
}

func (w *writer) h2(text string) {
	w.pdf.SetFont(w.family, "B", 15)
	w.pdf.MultiCell(contentW, 8, text, "", "L", false)
	w.pdf.SetDrawColor(120, 120, 120)
	y := w.pdf.GetY()
	w.pdf.Line(margin, y, pageW-margin, y)
	w.pdf.SetDrawColor(0, 0, 0)
	w.pdf.Ln(3)
}

func (w *writer) h3(text string) {
	w.pdf.Ln(1)
	w.pdf.SetFont(w.family, "B", 12)
	w.pdf.MultiCell(contentW, 6.5, text, "", "L", false)
	w.pdf.Ln(1)
}

func (w *writer) paragraph(text string) {
	w.pdf.SetFont(w.family, "", 11)
	w.pdf.MultiCell(contentW, lineH, text, "", "L", false)
	w.pdf.Ln(2)
}

func (w *writer) keyValue(key, value string) {
	w.pdf.SetFont(w.family, "B", 11)
	w.pdf.CellFormat(50, 7, key+":", "", 0, "L", false, 0, "")
	w.pdf.SetFont(w.family, "", 11)
	w.pdf.MultiCell(contentW-50, 7, value, "", "L", false)
}

// narrative prints a markdown block.
func (w *writer) narrative(src string) {
	blocks := parseNarrative(src)
	if len(blocks) == 0 {
		w.paragraph("—")
		return
	}
	for _, b := range blocks {
		switch b.Kind {
		case blockHeading:
			w.pdf.Ln(1)
			w.pdf.SetFont(w.family, "B", 12)
			w.pdf.MultiCell(contentW, 6, plainText(b.Spans), "", "L", false)
			w.pdf.Ln(1)
		case blockListItem:
			indent := 5 * float64(b.Depth-1)
			w.pdf.SetX(margin + indent)
			w.pdf.SetFont(w.family, "", 11)
			w.pdf.CellFormat(6, lineH, b.Marker, "", 0, "L", false, 0, "")
			w.spans(b.Spans, margin+indent+6)
			w.pdf.Ln(1)
		case blockRule:
			y := w.pdf.GetY() + 2
			w.pdf.Line(margin, y, pageW-margin, y)
			w.pdf.SetY(y + 3)
		default:
			w.spans(b.Spans, margin+5*float64(b.Depth))
			w.pdf.Ln(2)
		}
	}
	w.pdf.Ln(2)
}

// spans writes flowing text whose wrapped lines start at left.
func (w *writer) spans(spans []span, left float64) {
	w.pdf.SetLeftMargin(left)
	if w.pdf.GetX() < left {
		w.pdf.SetX(left)
	}
	for _, s := range spans {
		style := ""
		if s.Bold {
			style = "B"
		}
		w.pdf.SetFont(w.family, style, 11)
		w.pdf.Write(lineH, s.Text)
	}
	w.pdf.Ln(lineH)
	w.pdf.SetLeftMargin(margin)
	w.pdf.SetX(margin)
}

func (w *writer) tableHeader(widths []float64, cols ...string) {
	w.pdf.SetFont(w.family, "B", 10)
	w.pdf.SetFillColor(225, 225, 225)
	w.ensureSpace(7)
	for i, c := range cols {
		w.pdf.CellFormat(widths[i], 7, c, "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)
}

// row draws one bordered table row, wrapping long cells. The row never
// splits across pages.
func (w *writer) row(widths []float64, cells ...string) {
	const lh = 5.0
	w.pdf.SetFont(w.family, "", 10)

	lines := make([][]string, len(cells))
	n := 1
	for i, c := range cells {
		lines[i] = w.pdf.SplitText(strings.TrimSpace(c), widths[i])
		if len(lines[i]) == 0 {
			lines[i] = []string{""}
		}
		n = max(n, len(lines[i]))
	}
	h := float64(n)*lh + 1

	w.ensureSpace(h)
	x, y := margin, w.pdf.GetY()
	for i := range cells {
		w.pdf.Rect(x, y, widths[i], h, "D")
		for j, ln := range lines[i] {
			w.pdf.SetXY(x, y+0.5+float64(j)*lh)
			w.pdf.CellFormat(widths[i], lh, ln, "", 0, "L", false, 0, "")
		}
		x += widths[i]
	}
	w.pdf.SetXY(margin, y+h)
}

// ensureSpace starts a new page when h does not fit on the current one.
func (w *writer) ensureSpace(h float64) {
	if w.pdf.GetY()+h > pageH-margin {
		w.pdf.AddPage()
	}
}

// image places a square PNG centred at the given width.
func (w *writer) image(path string, width float64) {
	if path == "" {
		return
	}
	w.ensureSpace(width)
	y := w.pdf.GetY()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	w.pdf.ImageOptions(path, (pageW-width)/2, y, width, width, false, opts, 0, "")
	w.pdf.SetY(y + width + 4)
}
