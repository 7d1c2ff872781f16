package session

import (
	"slices"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
)

// Progress is the position within the current instrument and the battery.
type Progress struct {
	Instrument instrument.Instrument
	// Item is 1-based.
	Item, Items int
	// Answered and Total count items across the whole battery.
	Answered, Total int
}

// Progress reports where a running session stands. ok is false outside the
// running stages.
func (m *Machine) Progress(s *Session) (p Progress, ok bool) {
	inst, ok := s.Stage.Instrument()
	if !ok {
		return Progress{}, false
	}
	return Progress{
		Instrument: inst,
		Item:       s.Cursor + 1,
		Items:      m.Bank.Count(inst),
		Answered:   len(s.Responses),
		Total:      m.Bank.Total(),
	}, true
}

// ResponsesFor returns the session's answers to items of inst, in order.
func (m *Machine) ResponsesFor(s *Session, inst instrument.Instrument) []instrument.Response {
	return responsesFor(m.Bank, s, inst)
}

// responsesFor returns the responses given to items of inst, in order.
func responsesFor(bank *itembank.Bank, s *Session, inst instrument.Instrument) []instrument.Response {
	var out []instrument.Response
	for _, r := range s.Responses {
		if it, ok := bank.Item(r.ItemID); ok && it.Instrument == inst {
			out = append(out, r)
		}
	}
	return out
}

// next returns the instrument after inst in battery order.
func next(inst instrument.Instrument) (instrument.Instrument, bool) {
	i := slices.Index(instrument.Battery, inst)
	if i < 0 || i+1 >= len(instrument.Battery) {
		return "", false
	}
	return instrument.Battery[i+1], true
}
