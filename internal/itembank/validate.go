package itembank

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/abhisek/profilebot/internal/instrument"
)

// Rules holds the bank-level expectations checked at load time.
type Rules struct {
	// ItemCounts pins the exact item count per instrument. Instruments not
	// listed only need to be non-empty.
	ItemCounts map[instrument.Instrument]int
}

// DefaultRules matches the shipped battery.
func DefaultRules() Rules {
	return Rules{
		ItemCounts: map[instrument.Instrument]int{
			instrument.DISC:   8,
			instrument.HEXACO: 10,
			instrument.SOFT:   10,
		},
	}
}

// validateItems performs all structural checks on one instrument's items.
// Returns a combined error describing all problems found, or nil if valid.
func validateItems(inst instrument.Instrument, items []Item, rules Rules) error {
	var errs []string

	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			errs = append(errs, fmt.Sprintf("line %d: duplicate item %s", it.Line, it.ID))
		}
		seen[it.ID] = true
		errs = append(errs, validateChoices(it)...)
	}

	switch inst {
	case instrument.PAEI:
		errs = append(errs, validatePAEI(items)...)
	case instrument.DISC:
		errs = append(errs, validateDISC(items)...)
	case instrument.HEXACO:
		errs = append(errs, validateHEXACO(items)...)
	case instrument.SOFT:
		errs = append(errs, validateSOFT(items)...)
	}

	if want, ok := rules.ItemCounts[inst]; ok && len(items) != want {
		errs = append(errs, fmt.Sprintf("%s has %d items, want %d", inst, len(items), want))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateChoices(it Item) []string {
	if !it.Kind.IsLikert() {
		return nil
	}
	var errs []string
	lo, hi := it.Kind.Range()
	seen := make(map[int]bool, len(it.Choices))
	for _, c := range it.Choices {
		v, err := strconv.Atoi(c.Token)
		if err != nil || v < lo || v > hi {
			errs = append(errs, fmt.Sprintf("line %d: choice %q outside %d-%d", it.Line, c.Token, lo, hi))
			continue
		}
		if seen[v] {
			errs = append(errs, fmt.Sprintf("line %d: %s labels point %d twice", it.Line, it.ID, v))
		}
		seen[v] = true
	}
	return errs
}

func validatePAEI(items []Item) []string {
	var errs []string
	want := instrument.PAEI.FixedScales()
	for _, it := range items {
		if len(it.Choices) != 4 {
			errs = append(errs, fmt.Sprintf("line %d: %s has %d choices, want 4", it.Line, it.ID, len(it.Choices)))
			continue
		}
		tags := make(map[string]bool, 4)
		for _, c := range it.Choices {
			if !slices.Contains(want, instrument.Scale(c.Token)) {
				errs = append(errs, fmt.Sprintf("line %d: %s choice tagged %q, want one of P/A/E/I", it.Line, it.ID, c.Token))
			}
			if tags[c.Token] {
				errs = append(errs, fmt.Sprintf("line %d: %s repeats tag %q", it.Line, it.ID, c.Token))
			}
			tags[c.Token] = true
		}
	}
	return errs
}

func validateDISC(items []Item) []string {
	var errs []string
	perScale := make(map[instrument.Scale]int)
	for _, it := range items {
		perScale[it.Scale]++
	}
	for _, s := range instrument.DISC.FixedScales() {
		if perScale[s] != 2 {
			errs = append(errs, fmt.Sprintf("DISC scale %s has %d items, want 2", s, perScale[s]))
		}
	}
	return errs
}

func validateHEXACO(items []Item) []string {
	var errs []string
	letters := instrument.HEXACO.FixedScales()
	covered := make(map[instrument.Scale]bool)
	for _, it := range items {
		if !slices.Contains(letters, it.Scale) {
			errs = append(errs, fmt.Sprintf("line %d: %s has unknown HEXACO scale %q", it.Line, it.ID, it.Scale))
			continue
		}
		covered[it.Scale] = true
	}
	for _, l := range letters {
		if !covered[l] {
			errs = append(errs, fmt.Sprintf("HEXACO scale %s has no items", l))
		}
	}
	return errs
}

func validateSOFT(items []Item) []string {
	var errs []string
	skills := make(map[instrument.Scale]bool)
	for _, it := range items {
		if it.Scale == "" {
			errs = append(errs, fmt.Sprintf("line %d: %s has no skill name", it.Line, it.ID))
			continue
		}
		if skills[it.Scale] {
			errs = append(errs, fmt.Sprintf("line %d: skill %q appears twice", it.Line, it.Scale))
		}
		skills[it.Scale] = true
	}
	return errs
}
