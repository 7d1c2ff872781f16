package instrument

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Scores is the result of scoring one instrument. Normalised values always
// lie in [0, 10].
type Scores struct {
	Instrument Instrument
	// Scales lists the instrument's scales in canonical (display) order.
	Scales     []Scale
	Raw        map[Scale]float64
	Normalised map[Scale]float64
	// Answered is the number of responses that contributed to the result.
	Answered int
}

// Clone returns a deep copy.
func (s Scores) Clone() Scores {
	return Scores{
		Instrument: s.Instrument,
		Scales:     slices.Clone(s.Scales),
		Raw:        maps.Clone(s.Raw),
		Normalised: maps.Clone(s.Normalised),
		Answered:   s.Answered,
	}
}

// Empty reports whether the scores carry no scales.
func (s Scores) Empty() bool {
	return len(s.Scales) == 0
}

// tieOrder is the order used to break ties between equal scores. PAEI ties
// are resolved alphabetically, every other instrument uses display order.
func (s Scores) tieOrder() []Scale {
	order := slices.Clone(s.Scales)
	if s.Instrument == PAEI {
		slices.Sort(order)
	}
	return order
}

// Dominant returns the scale with the highest normalised value.
func (s Scores) Dominant() Scale {
	var best Scale
	bestVal := -1.0
	for _, sc := range s.tieOrder() {
		if v := s.Normalised[sc]; v > bestVal {
			best, bestVal = sc, v
		}
	}
	return best
}

// Ranked returns the scales sorted by descending normalised value.
func (s Scores) Ranked() []Scale {
	order := s.tieOrder()
	sort.SliceStable(order, func(i, j int) bool {
		return s.Normalised[order[i]] > s.Normalised[order[j]]
	})
	return order
}

// Format renders the scores in the fixed textual format used in LLM prompts:
// one "NAME (TAG): value/10" line per scale in display order.
func (s Scores) Format() string {
	var b strings.Builder
	for _, sc := range s.Scales {
		name := ScaleName(s.Instrument, sc)
		if name == string(sc) {
			fmt.Fprintf(&b, "%s: %s/10\n", name, FormatValue(s.Normalised[sc]))
			continue
		}
		fmt.Fprintf(&b, "%s (%s): %s/10\n", name, sc, FormatValue(s.Normalised[sc]))
	}
	return b.String()
}

// FormatValue prints a score with at most one decimal and no trailing ".0".
func FormatValue(v float64) string {
	out := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(out, ".0")
}

// Clamp10 bounds v to the report axis [0, 10].
func Clamp10(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	}
	return v
}
