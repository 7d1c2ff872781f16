// Package chart renders score profiles as radar charts.
//
// All charts share a fixed 0-10 radial axis so that profiles of different
// respondents can be compared side by side.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/abhisek/profilebot/internal/instrument"
)

// AxisMax is the outer ring of every chart.
const AxisMax = 10.0

// Ticks are the labelled rings.
var Ticks = []float64{0, 2, 4, 6, 8, 10}

// DPI is the print resolution charts are sized for.
const DPI = 300

// Options controls chart geometry. Zero values select the defaults.
type Options struct {
	// SizeInches is the edge of the square image at DPI. Default 5.
	SizeInches float64
}

func (o Options) pixels() int {
	in := o.SizeInches
	if in <= 0 {
		in = 5
	}
	return int(in * DPI)
}

// Greyscale palette. Reports are printed on office printers.
var (
	colBackground = color.Gray{Y: 255}
	colGrid       = color.Gray{Y: 200}
	colAxis       = color.Gray{Y: 150}
	colText       = color.Gray{Y: 40}
	colFill       = color.NRGBA{R: 90, G: 90, B: 90, A: 90}
	colLine       = color.Gray{Y: 30}
)

var (
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	fontsErr  error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, points float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: points, DPI: DPI, Hinting: font.HintingFull})
}

// Point is a vertex in image coordinates.
type Point struct{ X, Y float64 }

// Vertices places each value on its spoke. Spoke 0 points straight up and
// spokes advance clockwise. Values are clamped to [0, AxisMax] and mapped
// linearly: a value of AxisMax always lands on the outer ring.
func Vertices(values []float64, cx, cy, radius float64) []Point {
	n := len(values)
	out := make([]Point, n)
	for i, v := range values {
		r := radius * instrument.Clamp10(v) / AxisMax
		a := angle(i, n)
		out[i] = Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return out
}

func angle(i, n int) float64 {
	return -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
}

// Radar draws scores as a PNG and writes it to w.
func Radar(w io.Writer, s instrument.Scores, opts Options) error {
	if len(s.Scales) < 3 {
		return fmt.Errorf("radar chart needs at least 3 scales, %s has %d", s.Instrument, len(s.Scales))
	}
	if err := loadFonts(); err != nil {
		return fmt.Errorf("load chart fonts: %w", err)
	}

	size := opts.pixels()
	fs := float64(size)
	dc := gg.NewContext(size, size)
	dc.SetColor(colBackground)
	dc.Clear()

	cx, cy := fs/2, fs/2
	radius := fs * 0.30
	n := len(s.Scales)
	line := fs / 500

	// Rings.
	dc.SetLineWidth(line)
	for _, t := range Ticks[1:] {
		polygon(dc, Vertices(filled(n, t), cx, cy, radius))
		dc.SetColor(colGrid)
		dc.Stroke()
	}

	// Spokes.
	outer := Vertices(filled(n, AxisMax), cx, cy, radius)
	dc.SetColor(colAxis)
	for _, p := range outer {
		dc.DrawLine(cx, cy, p.X, p.Y)
		dc.Stroke()
	}

	// Tick labels along the first spoke.
	dc.SetFontFace(face(regular, 7))
	dc.SetColor(colText)
	for _, t := range Ticks {
		p := Vertices([]float64{t}, cx, cy, radius)[0]
		dc.DrawStringAnchored(instrument.FormatValue(t), p.X+fs/100, p.Y, 0, 0.5)
	}

	// Profile.
	values := make([]float64, n)
	for i, sc := range s.Scales {
		values[i] = s.Normalised[sc]
	}
	pts := Vertices(values, cx, cy, radius)
	polygon(dc, pts)
	dc.SetColor(colFill)
	dc.FillPreserve()
	dc.SetColor(colLine)
	dc.SetLineWidth(line * 3)
	dc.Stroke()
	for _, p := range pts {
		dc.DrawCircle(p.X, p.Y, line*4)
		dc.Fill()
	}

	// Scale labels outside the outer ring.
	dc.SetFontFace(face(bold, 8))
	labelR := radius + fs*0.06
	for i, sc := range s.Scales {
		a := angle(i, n)
		x := cx + labelR*math.Cos(a)
		y := cy + labelR*math.Sin(a)
		label := fmt.Sprintf("%s\n%s", scaleLabel(s.Instrument, sc), instrument.FormatValue(s.Normalised[sc]))
		dc.DrawStringWrapped(label, x, y, 0.5, 0.5, fs*0.28, 1.2, gg.AlignCenter)
	}

	return dc.EncodePNG(w)
}

// RadarPNG renders scores into memory.
func RadarPNG(s instrument.Scores, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Radar(&buf, s, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders scores into a PNG file at path.
func WriteFile(path string, s instrument.Scores, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Radar(f, s, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func scaleLabel(inst instrument.Instrument, sc instrument.Scale) string {
	name := instrument.ScaleName(inst, sc)
	if name == string(sc) {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, sc)
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func polygon(dc *gg.Context, pts []Point) {
	dc.NewSubPath()
	for i, p := range pts {
		if i == 0 {
			dc.MoveTo(p.X, p.Y)
			continue
		}
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
}
