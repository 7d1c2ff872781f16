// Package itembank loads and validates the static question sets of the four
// instruments. A bank is immutable after Load and safe for concurrent use.
package itembank

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"

	"github.com/abhisek/profilebot/internal/instrument"
)

//go:embed assets/*.txt
var assets embed.FS

// AssetLoadError reports a missing or malformed asset. Line is zero for
// whole-asset problems.
type AssetLoadError struct {
	Asset string
	Line  int
	Err   error
}

func (e *AssetLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("item bank %s:%d: %v", e.Asset, e.Line, e.Err)
	}
	return fmt.Sprintf("item bank %s: %v", e.Asset, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// AssetName returns the file name of an instrument's asset.
func AssetName(inst instrument.Instrument) string {
	return inst.Key() + ".txt"
}

// Bank is the loaded, validated set of items for all four instruments.
type Bank struct {
	items map[instrument.Instrument][]Item
	byID  map[string]Item
}

// Load parses the embedded assets with the default rules.
func Load() (*Bank, error) {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, fmt.Errorf("item bank assets: %w", err)
	}
	return LoadFS(sub, DefaultRules())
}

// LoadFS parses "<instrument>.txt" for every instrument from fsys.
func LoadFS(fsys fs.FS, rules Rules) (*Bank, error) {
	b := &Bank{
		items: make(map[instrument.Instrument][]Item, len(instrument.Battery)),
		byID:  make(map[string]Item),
	}
	for _, inst := range instrument.Battery {
		name := AssetName(inst)
		f, err := fsys.Open(name)
		if err != nil {
			return nil, &AssetLoadError{Asset: name, Err: err}
		}
		items, err := parseAsset(name, inst, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		if err := validateItems(inst, items, rules); err != nil {
			return nil, &AssetLoadError{Asset: name, Err: err}
		}
		b.items[inst] = items
		for _, it := range items {
			b.byID[it.ID] = it
		}
	}
	return b, nil
}

// NewBank builds a bank from already-constructed items without validation
// rules beyond per-instrument structure. Intended for tests and tooling.
func NewBank(items map[instrument.Instrument][]Item) *Bank {
	b := &Bank{
		items: make(map[instrument.Instrument][]Item, len(items)),
		byID:  make(map[string]Item),
	}
	for inst, list := range items {
		cp := make([]Item, len(list))
		for i, it := range list {
			cp[i] = it.clone()
			b.byID[it.ID] = cp[i]
		}
		b.items[inst] = cp
	}
	return b
}

// ItemsFor returns the ordered items of an instrument. Items are deep
// copies; changing them does not touch the bank.
func (b *Bank) ItemsFor(inst instrument.Instrument) []Item {
	list := b.items[inst]
	out := make([]Item, len(list))
	for i, it := range list {
		out[i] = it.clone()
	}
	return out
}

// Count returns the number of items of an instrument.
func (b *Bank) Count(inst instrument.Instrument) int {
	return len(b.items[inst])
}

// Total returns the number of items across the whole battery.
func (b *Bank) Total() int {
	n := 0
	for _, list := range b.items {
		n += len(list)
	}
	return n
}

// Item looks up an item by ID.
func (b *Bank) Item(id string) (Item, bool) {
	it, ok := b.byID[id]
	return it.clone(), ok
}

// ItemAt returns the item at position idx of an instrument.
func (b *Bank) ItemAt(inst instrument.Instrument, idx int) (Item, bool) {
	list := b.items[inst]
	if idx < 0 || idx >= len(list) {
		return Item{}, false
	}
	return list[idx].clone(), true
}

// Scales returns the scale order of an instrument. SOFT scales follow item
// declaration order.
func (b *Bank) Scales(inst instrument.Instrument) []instrument.Scale {
	if fixed := inst.FixedScales(); fixed != nil {
		return fixed
	}
	var out []instrument.Scale
	for _, it := range b.items[inst] {
		if !slices.Contains(out, it.Scale) {
			out = append(out, it.Scale)
		}
	}
	return out
}
