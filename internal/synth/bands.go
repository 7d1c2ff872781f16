package synth

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/profilebot/internal/instrument"
)

//go:embed bands/bands.yaml bands/disc_bands.csv
var bandAssets embed.FS

// wildcardScale matches every scale of an instrument that has no own entry.
const wildcardScale = "*"

// Band is one row of the level lookup.
type Band struct {
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"`
	Level string  `yaml:"level"`
	Text  string  `yaml:"text"`
}

// Bands maps a normalised score to a level label and canned text.
type Bands struct {
	table map[instrument.Instrument]map[instrument.Scale][]Band
}

// LoadBands reads the embedded band tables.
func LoadBands() (*Bands, error) {
	sub, err := fs.Sub(bandAssets, "bands")
	if err != nil {
		return nil, err
	}
	return LoadBandsFS(sub)
}

// LoadBandsFS reads bands.yaml and disc_bands.csv from fsys.
func LoadBandsFS(fsys fs.FS) (*Bands, error) {
	b := &Bands{table: make(map[instrument.Instrument]map[instrument.Scale][]Band)}

	raw, err := fs.ReadFile(fsys, "bands.yaml")
	if err != nil {
		return nil, fmt.Errorf("read bands.yaml: %w", err)
	}
	var doc map[string]map[string][]Band
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse bands.yaml: %w", err)
	}
	for name, scales := range doc {
		inst, err := instrument.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("bands.yaml: %w", err)
		}
		for sc, bands := range scales {
			b.add(inst, instrument.Scale(sc), bands...)
		}
	}

	f, err := fsys.Open("disc_bands.csv")
	if err != nil {
		return nil, fmt.Errorf("open disc_bands.csv: %w", err)
	}
	defer f.Close()
	if err := b.readCSV(instrument.DISC, f); err != nil {
		return nil, fmt.Errorf("disc_bands.csv: %w", err)
	}

	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bands) add(inst instrument.Instrument, sc instrument.Scale, bands ...Band) {
	if b.table[inst] == nil {
		b.table[inst] = make(map[instrument.Scale][]Band)
	}
	b.table[inst][sc] = append(b.table[inst][sc], bands...)
}

// readCSV parses rows of "scale,low,high,level,text" with a header line.
func (b *Bands) readCSV(inst instrument.Instrument, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if strings.ToLower(header[0]) != "scale" {
		return fmt.Errorf("unexpected header %v", header)
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)
		low, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return fmt.Errorf("line %d: low: %w", line, err)
		}
		high, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return fmt.Errorf("line %d: high: %w", line, err)
		}
		b.add(inst, instrument.Scale(rec[0]), Band{Low: low, High: high, Level: rec[3], Text: rec[4]})
	}
}

// validate sorts every scale's bands and checks they tile [0, 10].
func (b *Bands) validate() error {
	var errs []error
	for inst, scales := range b.table {
		for sc, bands := range scales {
			slices.SortFunc(bands, func(x, y Band) int {
				switch {
				case x.Low < y.Low:
					return -1
				case x.Low > y.Low:
					return 1
				}
				return 0
			})
			if bands[0].Low != 0 || bands[len(bands)-1].High != 10 {
				errs = append(errs, fmt.Errorf("bands %s/%s do not cover 0-10", inst, sc))
			}
			for i := 1; i < len(bands); i++ {
				if bands[i].Low != bands[i-1].High {
					errs = append(errs, fmt.Errorf("bands %s/%s: gap or overlap at %v", inst, sc, bands[i].Low))
				}
			}
		}
	}
	for _, inst := range instrument.Battery {
		if len(b.table[inst]) == 0 {
			errs = append(errs, fmt.Errorf("no bands for %s", inst))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the band for a normalised value. The band with the largest
// lower bound not above v wins, so boundary values belong to the higher band.
func (b *Bands) Lookup(inst instrument.Instrument, sc instrument.Scale, v float64) Band {
	bands := b.table[inst][sc]
	if len(bands) == 0 {
		bands = b.table[inst][wildcardScale]
	}
	if len(bands) == 0 {
		return Band{Low: 0, High: 10, Level: "—"}
	}
	out := bands[0]
	for _, band := range bands {
		if band.Low <= v {
			out = band
		}
	}
	return out
}

// Table returns the bands of a scale in ascending order, falling back to the
// instrument's wildcard entry.
func (b *Bands) Table(inst instrument.Instrument, sc instrument.Scale) []Band {
	bands := b.table[inst][sc]
	if len(bands) == 0 {
		bands = b.table[inst][wildcardScale]
	}
	return slices.Clone(bands)
}
