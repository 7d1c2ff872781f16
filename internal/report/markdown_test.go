package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNarrative(t *testing.T) {
	src := "**DISC**\n\n" +
		"- **Доминирование (D)**: 10/10, очень высокий.\n" +
		"- Влияние: 2/10\n\n" +
		"Ведущая шкала: **Доминирование**.\nВторая строка.\n\n" +
		"1. первое\n2. второе\n\n" +
		"## Итог\n\n---\n"

	blocks := parseNarrative(src)
	require.Len(t, blocks, 8)

	assert.Equal(t, blockParagraph, blocks[0].Kind)
	assert.Equal(t, []span{{Text: "DISC", Bold: true}}, blocks[0].Spans)

	assert.Equal(t, blockListItem, blocks[1].Kind)
	assert.Equal(t, "•", blocks[1].Marker)
	assert.Equal(t, []span{
		{Text: "Доминирование (D)", Bold: true},
		{Text: ": 10/10, очень высокий."},
	}, blocks[1].Spans)
	assert.Equal(t, "Влияние: 2/10", plainText(blocks[2].Spans))

	assert.Equal(t, "Ведущая шкала: Доминирование. Вторая строка.", plainText(blocks[3].Spans))

	assert.Equal(t, "1.", blocks[4].Marker)
	assert.Equal(t, "2.", blocks[5].Marker)
	assert.Equal(t, "второе", plainText(blocks[5].Spans))

	assert.Equal(t, blockHeading, blocks[6].Kind)
	assert.Equal(t, "Итог", plainText(blocks[6].Spans))
	assert.Equal(t, blockRule, blocks[7].Kind)
}

func TestParseNarrative_Empty(t *testing.T) {
	assert.Empty(t, parseNarrative(""))
	assert.Empty(t, parseNarrative("\n\n  \n"))
}

func TestParseNarrative_PlainProse(t *testing.T) {
	blocks := parseNarrative("Просто текст заключения.")
	require.Len(t, blocks, 1)
	assert.Equal(t, []span{{Text: "Просто текст заключения."}}, blocks[0].Spans)
}
