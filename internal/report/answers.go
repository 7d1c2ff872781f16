package report

import (
	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/itembank"
)

// AnswerRows pairs each response with its item for the analyst appendix.
// Responses to unknown items are listed with an empty question.
func AnswerRows(items []itembank.Item, responses []instrument.Response) []AnswerRow {
	byID := make(map[string]itembank.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	rows := make([]AnswerRow, 0, len(responses))
	for _, r := range responses {
		it, ok := byID[r.ItemID]
		if !ok {
			rows = append(rows, AnswerRow{ItemID: r.ItemID, Answer: r.Value})
			continue
		}
		rows = append(rows, AnswerRow{ItemID: it.ID, Question: it.Text, Answer: answerLabel(it, r.Value)})
	}
	return rows
}

func answerLabel(it itembank.Item, value string) string {
	if !it.Kind.IsLikert() {
		return value + " (" + instrument.ScaleName(it.Instrument, instrument.Scale(value)) + ")"
	}
	for _, c := range it.Options() {
		if c.Token == value && c.Label != "" {
			return value + ": " + c.Label
		}
	}
	return value
}
