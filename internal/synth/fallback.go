package synth

import (
	"fmt"
	"strings"

	"github.com/abhisek/profilebot/internal/instrument"
)

// discOpposite pairs each DISC style with the one that balances it.
var discOpposite = map[instrument.Scale]instrument.Scale{
	"D": "S", "S": "D", "I": "C", "C": "I",
}

func scaleLabel(inst instrument.Instrument, sc instrument.Scale) string {
	name := instrument.ScaleName(inst, sc)
	if name == string(sc) {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, sc)
}

// fallbackInstrument builds the deterministic block for one instrument from
// the band lookup alone.
func (s *Synthesiser) fallbackInstrument(sc instrument.Scores) string {
	inst := sc.Instrument
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**%s**\n\n", inst.Title()))
	for _, scale := range sc.Scales {
		v := sc.Normalised[scale]
		band := s.bands.Lookup(inst, scale, v)
		b.WriteString(fmt.Sprintf("- **%s**: %s/10, %s. %s\n",
			scaleLabel(inst, scale), instrument.FormatValue(v), band.Level, band.Text))
	}

	dom := sc.Dominant()
	domBand := s.bands.Lookup(inst, dom, sc.Normalised[dom])
	b.WriteString(fmt.Sprintf("\nВедущая шкала: **%s** (%s/10). %s\n\n",
		instrument.ScaleName(inst, dom), instrument.FormatValue(sc.Normalised[dom]), domBand.Text))

	ranked := sc.Ranked()
	top, bottom := splitRanked(ranked)

	writeHeading(&b, headingStrengths)
	for _, scale := range top {
		band := s.bands.Lookup(inst, scale, sc.Normalised[scale])
		b.WriteString(fmt.Sprintf("- %s: %s\n", instrument.ScaleName(inst, scale), band.Text))
	}

	b.WriteString("\n")
	writeHeading(&b, "Рекомендации")
	for _, scale := range bottom {
		band := s.bands.Lookup(inst, scale, sc.Normalised[scale])
		b.WriteString(fmt.Sprintf("- Уделите внимание шкале «%s» (уровень: %s). %s\n",
			instrument.ScaleName(inst, scale), band.Level, band.Text))
	}

	return strings.TrimSpace(b.String())
}

// splitRanked returns the two strongest and the two weakest scales without
// overlap.
func splitRanked(ranked []instrument.Scale) (top, bottom []instrument.Scale) {
	n := min(2, len(ranked))
	top = ranked[:n]
	rest := ranked[n:]
	m := min(2, len(rest))
	bottom = rest[len(rest)-m:]
	return top, bottom
}

func (s *Synthesiser) fallbackOverall(scores map[instrument.Instrument]instrument.Scores) string {
	var o overallOutput

	var portrait []string
	for _, inst := range instrument.Battery {
		sc := scores[inst]
		dom := sc.Dominant()
		band := s.bands.Lookup(inst, dom, sc.Normalised[dom])
		portrait = append(portrait, fmt.Sprintf("%s: ведущая шкала **%s** (%s/10, %s). %s",
			inst.Title(), instrument.ScaleName(inst, dom), instrument.FormatValue(sc.Normalised[dom]), band.Level, band.Text))
	}
	o.Portrait = strings.Join(portrait, "\n\n")

	for _, inst := range instrument.Battery {
		sc := scores[inst]
		ranked := sc.Ranked()
		if len(ranked) == 0 {
			continue
		}
		hi, lo := ranked[0], ranked[len(ranked)-1]
		hiBand := s.bands.Lookup(inst, hi, sc.Normalised[hi])
		loBand := s.bands.Lookup(inst, lo, sc.Normalised[lo])
		o.Strengths = append(o.Strengths, fmt.Sprintf("**%s** (%s): %s", instrument.ScaleName(inst, hi), inst.Title(), hiBand.Text))
		o.Development = append(o.Development, fmt.Sprintf("**%s** (%s): %s", instrument.ScaleName(inst, lo), inst.Title(), loBand.Text))
	}

	o.Team = s.teamAdvice(scores)
	return renderOverall(o)
}

func (s *Synthesiser) teamAdvice(scores map[instrument.Instrument]instrument.Scores) string {
	var parts []string

	paei := scores[instrument.PAEI]
	if ranked := paei.Ranked(); len(ranked) >= 2 {
		weak := ranked[len(ranked)-2:]
		parts = append(parts, fmt.Sprintf(
			"Ваша ведущая роль по PAEI: **%s**. Команду стоит дополнить коллегами с выраженными ролями **%s** и **%s**, чтобы закрыть наименее выраженные у вас функции.",
			instrument.ScaleName(instrument.PAEI, paei.Dominant()),
			instrument.ScaleName(instrument.PAEI, weak[1]),
			instrument.ScaleName(instrument.PAEI, weak[0])))
	}

	disc := scores[instrument.DISC]
	if dom := disc.Dominant(); dom != "" {
		parts = append(parts, fmt.Sprintf(
			"Ваш ведущий стиль DISC: **%s**. Балансирующим партнёром будет человек со стилем **%s**.",
			instrument.ScaleName(instrument.DISC, dom),
			instrument.ScaleName(instrument.DISC, discOpposite[dom])))
	}

	return strings.Join(parts, "\n\n")
}
