// Package scoring converts raw item responses into per-scale scores. Every
// function is pure: the same items and responses always yield equal results.
package scoring

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
)

// IncompleteInstrumentError is returned when scoring is requested before
// every item of the instrument has a response.
type IncompleteInstrumentError struct {
	Instrument instrument.Instrument
	Missing    int
}

func (e *IncompleteInstrumentError) Error() string {
	return fmt.Sprintf("incomplete %s: %d response(s) missing", e.Instrument, e.Missing)
}

// InvalidResponseError reports a stored response that does not fit its item.
type InvalidResponseError struct {
	ItemID string
	Value  string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response %q for item %s", e.Value, e.ItemID)
}

// Score dispatches to the scorer of inst. items is the full ordered item list
// of the instrument; responses may contain answers for other instruments,
// which are ignored.
func Score(inst instrument.Instrument, items []itembank.Item, responses []instrument.Response) (instrument.Scores, error) {
	switch inst {
	case instrument.PAEI:
		return ScorePAEI(items, responses)
	case instrument.DISC:
		return ScoreDISC(items, responses)
	case instrument.HEXACO:
		return ScoreHEXACO(items, responses)
	case instrument.SOFT:
		return ScoreSOFT(items, responses)
	}
	return instrument.Scores{}, fmt.Errorf("unknown instrument %q", inst)
}

// answered pairs every item with its response value. The last response for
// an item wins.
type answered struct {
	item  itembank.Item
	value string
}

func collect(inst instrument.Instrument, items []itembank.Item, responses []instrument.Response) ([]answered, error) {
	byID := make(map[string]string, len(responses))
	for _, r := range responses {
		byID[r.ItemID] = r.Value
	}
	out := make([]answered, 0, len(items))
	missing := 0
	for _, it := range items {
		v, ok := byID[it.ID]
		if !ok {
			missing++
			continue
		}
		out = append(out, answered{item: it, value: v})
	}
	if missing > 0 {
		return nil, &IncompleteInstrumentError{Instrument: inst, Missing: missing}
	}
	return out, nil
}

func likertValue(a answered) (int, error) {
	v, err := strconv.Atoi(a.value)
	lo, hi := a.item.Kind.Range()
	if err != nil || !a.item.Kind.IsLikert() || v < lo || v > hi {
		return 0, &InvalidResponseError{ItemID: a.item.ID, Value: a.value}
	}
	return v, nil
}

func newScores(inst instrument.Instrument, scales []instrument.Scale, n int) instrument.Scores {
	s := instrument.Scores{
		Instrument: inst,
		Scales:     scales,
		Raw:        make(map[instrument.Scale]float64, len(scales)),
		Normalised: make(map[instrument.Scale]float64, len(scales)),
		Answered:   n,
	}
	for _, sc := range scales {
		s.Raw[sc] = 0
		s.Normalised[sc] = 0
	}
	return s
}

// ScorePAEI counts one point per response for the chosen role and scales the
// counts to the share of answered items on a 0-10 axis.
func ScorePAEI(items []itembank.Item, responses []instrument.Response) (instrument.Scores, error) {
	ans, err := collect(instrument.PAEI, items, responses)
	if err != nil {
		return instrument.Scores{}, err
	}
	s := newScores(instrument.PAEI, instrument.PAEI.FixedScales(), len(ans))
	for _, a := range ans {
		sc := instrument.Scale(a.value)
		if _, ok := s.Raw[sc]; !ok {
			return instrument.Scores{}, &InvalidResponseError{ItemID: a.item.ID, Value: a.value}
		}
		s.Raw[sc]++
	}
	total := float64(len(ans))
	for _, sc := range s.Scales {
		if total > 0 {
			s.Normalised[sc] = instrument.Clamp10(s.Raw[sc] * 10 / total)
		}
	}
	return s, nil
}

// ScoreDISC sums the likert values per scale. With two items per scale the
// sum already lies on the report axis, so normalisation is the identity.
func ScoreDISC(items []itembank.Item, responses []instrument.Response) (instrument.Scores, error) {
	ans, err := collect(instrument.DISC, items, responses)
	if err != nil {
		return instrument.Scores{}, err
	}
	s := newScores(instrument.DISC, instrument.DISC.FixedScales(), len(ans))
	for _, a := range ans {
		v, err := likertValue(a)
		if err != nil {
			return instrument.Scores{}, err
		}
		s.Raw[a.item.Scale] += float64(v)
	}
	for _, sc := range s.Scales {
		s.Normalised[sc] = instrument.Clamp10(s.Raw[sc])
	}
	return s, nil
}

// ScoreHEXACO averages the (reverse-corrected) likert values per letter and
// maps the 1-5 mean onto the report axis by doubling it.
func ScoreHEXACO(items []itembank.Item, responses []instrument.Response) (instrument.Scores, error) {
	ans, err := collect(instrument.HEXACO, items, responses)
	if err != nil {
		return instrument.Scores{}, err
	}
	s := newScores(instrument.HEXACO, instrument.HEXACO.FixedScales(), len(ans))
	sums := make(map[instrument.Scale]float64)
	counts := make(map[instrument.Scale]int)
	for _, a := range ans {
		v, err := likertValue(a)
		if err != nil {
			return instrument.Scores{}, err
		}
		sums[a.item.Scale] += float64(applyReverse(a.item, v))
		counts[a.item.Scale]++
	}
	for _, sc := range s.Scales {
		if counts[sc] == 0 {
			continue
		}
		mean := sums[sc] / float64(counts[sc])
		s.Raw[sc] = mean
		s.Normalised[sc] = instrument.Clamp10(mean * 2)
	}
	return s, nil
}

// ScoreSOFT averages self-ratings per skill. The multiplier comes from each
// item's declared range: x2 for 1-5 items, x1 for 1-10 items.
func ScoreSOFT(items []itembank.Item, responses []instrument.Response) (instrument.Scores, error) {
	ans, err := collect(instrument.SOFT, items, responses)
	if err != nil {
		return instrument.Scores{}, err
	}
	var scales []instrument.Scale
	for _, it := range items {
		if !slices.Contains(scales, it.Scale) {
			scales = append(scales, it.Scale)
		}
	}
	s := newScores(instrument.SOFT, scales, len(ans))
	sums := make(map[instrument.Scale]float64)
	normSums := make(map[instrument.Scale]float64)
	counts := make(map[instrument.Scale]int)
	for _, a := range ans {
		v, err := likertValue(a)
		if err != nil {
			return instrument.Scores{}, err
		}
		v = applyReverse(a.item, v)
		sums[a.item.Scale] += float64(v)
		normSums[a.item.Scale] += float64(v) * softMultiplier(a.item.Kind)
		counts[a.item.Scale]++
	}
	for _, sc := range scales {
		if counts[sc] == 0 {
			continue
		}
		n := float64(counts[sc])
		s.Raw[sc] = sums[sc] / n
		s.Normalised[sc] = instrument.Clamp10(normSums[sc] / n)
	}
	return s, nil
}

func softMultiplier(k instrument.ResponseKind) float64 {
	if k == instrument.Likert10 {
		return 1
	}
	return 2
}

// applyReverse flips a likert value around the midpoint of its range.
func applyReverse(it itembank.Item, v int) int {
	if !it.Reverse {
		return v
	}
	lo, hi := it.Kind.Range()
	return lo + hi - v
}
