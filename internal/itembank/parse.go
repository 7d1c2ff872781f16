package itembank

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/abhisek/profilebot/internal/instrument"
)

var (
	itemLine   = regexp.MustCompile(`^(\d+)(?:\.(\d+))?\.?\s+(?:\[([^\]]*)\]\s*)?(\S.*)$`)
	choiceLine = regexp.MustCompile(`^([^:\s]+)\s*:\s*(\S.*)$`)
)

// discCategories maps the DISC category number to its scale.
var discCategories = map[int]instrument.Scale{1: "D", 2: "I", 3: "S", 4: "C"}

// parseAsset reads one instrument asset. Structural problems are reported
// with the asset name and the offending line number.
func parseAsset(name string, inst instrument.Instrument, r io.Reader) ([]Item, error) {
	var (
		items   []Item
		current *Item
		lineNo  int
	)

	fail := func(format string, args ...any) error {
		return &AssetLoadError{Asset: name, Line: lineNo, Err: fmt.Errorf(format, args...)}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), " \t\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if !unicode.IsSpace(rune(raw[0])) {
			m := itemLine.FindStringSubmatch(raw)
			if m == nil {
				return nil, fail("expected numbered item, got %q", trimmed)
			}
			it, err := buildItem(inst, m, lineNo)
			if err != nil {
				return nil, fail("%v", err)
			}
			items = append(items, it)
			current = &items[len(items)-1]
			continue
		}

		if current == nil {
			return nil, fail("choice %q appears before any item", trimmed)
		}
		m := choiceLine.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, fail("malformed choice %q", trimmed)
		}
		current.Choices = append(current.Choices, Choice{Token: strings.ToUpper(m[1]), Label: strings.TrimSpace(m[2])})
	}
	if err := sc.Err(); err != nil {
		return nil, &AssetLoadError{Asset: name, Line: lineNo, Err: err}
	}
	if len(items) == 0 {
		return nil, &AssetLoadError{Asset: name, Err: fmt.Errorf("no items")}
	}
	return items, nil
}

func buildItem(inst instrument.Instrument, m []string, line int) (Item, error) {
	num, sub, tags, text := m[1], m[2], m[3], strings.TrimSpace(m[4])

	id := inst.Key() + "-" + num
	if sub != "" {
		id += "." + sub
	}
	it := Item{
		ID:         id,
		Text:       text,
		Instrument: inst,
		Kind:       instrument.Likert5,
		Line:       line,
	}
	if inst == instrument.PAEI {
		it.Kind = instrument.ChooseOneOfFour
	}

	fields := splitTags(tags)
	if len(fields) > 0 {
		it.Scale = instrument.Scale(fields[0])
		for _, f := range fields[1:] {
			switch strings.ToLower(f) {
			case "reverse", "r":
				it.Reverse = true
			case "1-5":
				it.Kind = instrument.Likert5
			case "1-10":
				it.Kind = instrument.Likert10
			default:
				return Item{}, fmt.Errorf("unknown tag %q", f)
			}
		}
	}

	if inst == instrument.DISC {
		if sub == "" {
			return Item{}, fmt.Errorf("DISC item %s needs category.subcategory numbering", num)
		}
		cat, _ := strconv.Atoi(num)
		scale, ok := discCategories[cat]
		if !ok {
			return Item{}, fmt.Errorf("DISC category %d out of range 1-4", cat)
		}
		if s, _ := strconv.Atoi(sub); s < 1 || s > 2 {
			return Item{}, fmt.Errorf("DISC subcategory %s out of range 1-2", sub)
		}
		if it.Scale != "" && it.Scale != scale {
			return Item{}, fmt.Errorf("DISC item %s.%s tagged %s, category implies %s", num, sub, it.Scale, scale)
		}
		it.Scale = scale
	}

	if it.Kind == instrument.ChooseOneOfFour && it.Reverse {
		return Item{}, fmt.Errorf("reverse scoring is only valid on likert items")
	}
	return it, nil
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ";") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
