package itembank

import (
	"slices"
	"strconv"
	"strings"

	"github.com/abhisek/profilebot/internal/instrument"
)

// Choice is one selectable answer of an item.
type Choice struct {
	// Token is the scale tag (tagged choice) or the numeric point (likert).
	Token string
	Label string
}

// Item is one immutable question of an instrument.
type Item struct {
	ID         string
	Text       string
	Instrument instrument.Instrument
	// Scale is empty for tagged-choice items: each choice carries its own tag.
	Scale   instrument.Scale
	Kind    instrument.ResponseKind
	Choices []Choice
	Reverse bool
	// Line is the asset line the item was declared on.
	Line int
}

// Options returns the full answer set of the item in display order. Likert
// items get one option per point of their range; asset labels attach to
// the points they name.
func (it Item) Options() []Choice {
	if !it.Kind.IsLikert() {
		return slices.Clone(it.Choices)
	}
	lo, hi := it.Kind.Range()
	out := make([]Choice, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		c := Choice{Token: strconv.Itoa(v)}
		for _, l := range it.Choices {
			if l.Token == c.Token {
				c.Label = l.Label
				break
			}
		}
		out = append(out, c)
	}
	return out
}

func (it Item) clone() Item {
	it.Choices = slices.Clone(it.Choices)
	return it
}

// cyrillicLookalikes maps Cyrillic letters a respondent may type instead of
// the Latin PAEI tags.
var cyrillicLookalikes = map[string]string{
	"Р": "P",
	"А": "A",
	"Е": "E",
	"И": "I",
}

// ParseAnswer matches free text against the item's allowed responses and
// returns the canonical response value. Accepted forms are the token itself,
// the choice label, and the "TOKEN: label" button text.
func (it Item) ParseAnswer(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", false
	}

	if it.Kind.IsLikert() {
		lo, hi := it.Kind.Range()
		if v, err := strconv.Atoi(t); err == nil {
			if v < lo || v > hi {
				return "", false
			}
			return strconv.Itoa(v), true
		}
	}

	upper := strings.ToUpper(t)
	if alt, ok := cyrillicLookalikes[upper]; ok {
		upper = alt
	}
	for _, c := range it.Options() {
		if upper == strings.ToUpper(c.Token) {
			return c.Token, true
		}
		if strings.HasPrefix(upper, strings.ToUpper(c.Token)+":") {
			return c.Token, true
		}
		if c.Label != "" && strings.EqualFold(t, c.Label) {
			return c.Token, true
		}
	}
	return "", false
}
