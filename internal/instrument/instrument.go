// Package instrument holds the vocabulary shared by the item bank, the
// scoring engine and the interpretation layer: instruments, scales, response
// kinds and the per-instrument score result.
package instrument

import (
	"fmt"
	"strings"
	"time"
)

// Instrument identifies one questionnaire of the battery.
type Instrument string

const (
	PAEI   Instrument = "PAEI"
	DISC   Instrument = "DISC"
	HEXACO Instrument = "HEXACO"
	SOFT   Instrument = "SOFT"
)

// Battery is the order in which a respondent takes the instruments. Report
// sections and narrative blocks follow the same order.
var Battery = []Instrument{PAEI, SOFT, HEXACO, DISC}

// Scale is one dimension of an instrument. For SOFT the scale is the skill name.
type Scale string

// Parse converts a case-insensitive name into an Instrument.
func Parse(s string) (Instrument, error) {
	inst := Instrument(strings.ToUpper(strings.TrimSpace(s)))
	if !inst.Valid() {
		return "", fmt.Errorf("unknown instrument %q", s)
	}
	return inst, nil
}

// Valid reports whether i is one of the four shipped instruments.
func (i Instrument) Valid() bool {
	switch i {
	case PAEI, DISC, HEXACO, SOFT:
		return true
	}
	return false
}

// Key returns the lowercase form used in file names and metric labels.
func (i Instrument) Key() string {
	return strings.ToLower(string(i))
}

// Title is the human-readable instrument name used in chat and in the report.
func (i Instrument) Title() string {
	switch i {
	case PAEI:
		return "PAEI (Адизес)"
	case DISC:
		return "DISC"
	case HEXACO:
		return "HEXACO"
	case SOFT:
		return "Soft Skills"
	}
	return string(i)
}

// FixedScales returns the canonical scale order for instruments with a fixed
// set of scales. SOFT returns nil because its scales come from the item bank.
func (i Instrument) FixedScales() []Scale {
	switch i {
	case PAEI:
		return []Scale{"P", "A", "E", "I"}
	case DISC:
		return []Scale{"D", "I", "S", "C"}
	case HEXACO:
		return []Scale{"H", "E", "X", "A", "C", "O"}
	}
	return nil
}

var scaleNames = map[Instrument]map[Scale]string{
	PAEI: {
		"P": "Производитель",
		"A": "Администратор",
		"E": "Предприниматель",
		"I": "Интегратор",
	},
	DISC: {
		"D": "Доминирование",
		"I": "Влияние",
		"S": "Стабильность",
		"C": "Соответствие",
	},
	HEXACO: {
		"H": "Честность-Скромность",
		"E": "Эмоциональность",
		"X": "Экстраверсия",
		"A": "Доброжелательность",
		"C": "Добросовестность",
		"O": "Открытость опыту",
	},
}

// ScaleName returns the full display name of a scale. SOFT scales are
// already display names and are returned unchanged.
func ScaleName(inst Instrument, s Scale) string {
	if names, ok := scaleNames[inst]; ok {
		if n, ok := names[s]; ok {
			return n
		}
	}
	return string(s)
}

// ResponseKind describes what a valid answer to an item looks like.
type ResponseKind string

const (
	ChooseOneOfFour ResponseKind = "choose_one_of_four_tagged"
	Likert5         ResponseKind = "likert_1_5"
	Likert10        ResponseKind = "likert_1_10"
)

// Range returns the inclusive numeric bounds of a likert kind. It returns
// (0, 0) for tagged-choice items.
func (k ResponseKind) Range() (lo, hi int) {
	switch k {
	case Likert5:
		return 1, 5
	case Likert10:
		return 1, 10
	}
	return 0, 0
}

// IsLikert reports whether the kind is answered with a number.
func (k ResponseKind) IsLikert() bool {
	return k == Likert5 || k == Likert10
}

// Response is one recorded answer. Value holds the scale tag for tagged
// choices and the decimal integer for likert items.
type Response struct {
	ItemID string
	Value  string
	At     time.Time
}
