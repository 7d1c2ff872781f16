package synth

import (
	"embed"
	"fmt"
	"strings"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/llm"
)

//go:embed prompts/*.md
var promptAssets embed.FS

// Section identifies one narrative block.
type Section string

// Overall is the cross-instrument summary block.
const Overall Section = "OVERALL"

// Sections is the fixed order of narrative blocks.
var Sections = []Section{
	Section(instrument.PAEI),
	Section(instrument.SOFT),
	Section(instrument.HEXACO),
	Section(instrument.DISC),
	Overall,
}

// Key returns the lowercase name used for prompt files and LLM purposes.
func (s Section) Key() string {
	return strings.ToLower(string(s))
}

func loadPrompts() (map[Section]string, error) {
	out := make(map[Section]string, len(Sections))
	for _, s := range Sections {
		raw, err := promptAssets.ReadFile("prompts/" + s.Key() + ".md")
		if err != nil {
			return nil, fmt.Errorf("system prompt %s: %w", s, err)
		}
		out[s] = strings.TrimSpace(string(raw))
	}
	return out, nil
}

func buildInstrumentUserMessage(s instrument.Scores, dialogContext string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Методика: %s\n", s.Instrument.Title()))
	b.WriteString("Результаты (шкала 0-10):\n")
	b.WriteString(s.Format())

	dom := s.Dominant()
	b.WriteString(fmt.Sprintf("\nВедущая шкала: %s (%s/10)\n",
		instrument.ScaleName(s.Instrument, dom), instrument.FormatValue(s.Normalised[dom])))

	ranked := s.Ranked()
	names := make([]string, len(ranked))
	for i, sc := range ranked {
		names[i] = instrument.ScaleName(s.Instrument, sc)
	}
	b.WriteString(fmt.Sprintf("Порядок по убыванию: %s\n", strings.Join(names, ", ")))

	writeDialogContext(&b, dialogContext)
	return b.String()
}

func buildOverallUserMessage(scores map[instrument.Instrument]instrument.Scores, dialogContext string) string {
	var b strings.Builder

	for _, inst := range instrument.Battery {
		s := scores[inst]
		b.WriteString(fmt.Sprintf("## %s\n", inst.Title()))
		b.WriteString(s.Format())
		dom := s.Dominant()
		b.WriteString(fmt.Sprintf("Ведущая шкала: %s\n\n", instrument.ScaleName(inst, dom)))
	}

	writeDialogContext(&b, dialogContext)
	return b.String()
}

func writeDialogContext(b *strings.Builder, dialogContext string) {
	if dialogContext = strings.TrimSpace(dialogContext); dialogContext != "" {
		b.WriteString("\nКонтекст диалога:\n")
		b.WriteString(dialogContext)
		b.WriteString("\n")
	}
}

// OverallSchema defines the structured output of the overall block.
var OverallSchema = &llm.Schema{
	Name:        "overall-profile",
	Description: "Four-part summary across PAEI, Soft Skills, HEXACO and DISC",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"portrait": map[string]any{
				"type":        "string",
				"description": "Integrated portrait, 2-3 paragraphs",
			},
			"strengths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-5 strengths, each grounded in at least two instruments",
			},
			"development": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "3-5 areas to develop with a concrete action each",
			},
			"team": map[string]any{
				"type":        "string",
				"description": "Team-composition recommendations, 2-3 paragraphs",
			},
		},
		"required":             []any{"portrait", "strengths", "development", "team"},
		"additionalProperties": false,
	},
}

type overallOutput struct {
	Portrait    string   `json:"portrait"`
	Strengths   []string `json:"strengths"`
	Development []string `json:"development"`
	Team        string   `json:"team"`
}

// Headings of the overall block, shared by the LLM and fallback paths.
const (
	headingPortrait    = "Портрет"
	headingStrengths   = "Сильные стороны"
	headingDevelopment = "Зоны развития"
	headingTeam        = "Рекомендации по составу команды"
)

func renderOverall(o overallOutput) string {
	var b strings.Builder
	writeHeading(&b, headingPortrait)
	b.WriteString(strings.TrimSpace(o.Portrait))
	b.WriteString("\n\n")
	writeHeading(&b, headingStrengths)
	writeList(&b, o.Strengths)
	b.WriteString("\n")
	writeHeading(&b, headingDevelopment)
	writeList(&b, o.Development)
	b.WriteString("\n")
	writeHeading(&b, headingTeam)
	b.WriteString(strings.TrimSpace(o.Team))
	return strings.TrimSpace(b.String())
}

func writeHeading(b *strings.Builder, h string) {
	b.WriteString("**")
	b.WriteString(h)
	b.WriteString("**\n\n")
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			b.WriteString("- ")
			b.WriteString(it)
			b.WriteString("\n")
		}
	}
}
