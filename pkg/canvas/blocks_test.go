package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = "# Compliance Report\n\n" +
	"The company is **partially compliant** with RA 9003.\n\n" +
	"## Findings\n\n" +
	"- Waste segregation is in place\n" +
	"- No recovery facility\n" +
	"  - Required by Section 32\n\n" +
	"1. Build a facility\n" +
	"2. Train staff\n\n" +
	"> Penalties apply after 30 days.\n\n" +
	"---\n\n" +
	"| Requirement | Status |\n" +
	"|---|---|\n" +
	"| Segregation | Met |\n" +
	"| MRF | Not met |\n\n" +
	"```json\n{\"score\": 0.6}\n```\n"

func TestParseBlocks(t *testing.T) {
	blocks := ParseBlocks(report)
	require.Len(t, blocks, 9)

	assert.Equal(t, Block{Type: BlockHeading, Level: 1, Text: "Compliance Report"}, blocks[0])
	assert.Equal(t, Block{Type: BlockParagraph, Text: "The company is partially compliant with RA 9003."}, blocks[1])
	assert.Equal(t, Block{Type: BlockHeading, Level: 2, Text: "Findings"}, blocks[2])

	assert.Equal(t, BlockList, blocks[3].Type)
	assert.False(t, blocks[3].Ordered)
	require.Len(t, blocks[3].Items, 2)
	assert.Equal(t, "No recovery facility", blocks[3].Items[1].Text)
	assert.Equal(t, []ListItem{{Text: "Required by Section 32"}}, blocks[3].Items[1].Children)

	assert.True(t, blocks[4].Ordered)
	assert.Equal(t, []ListItem{{Text: "Build a facility"}, {Text: "Train staff"}}, blocks[4].Items)

	assert.Equal(t, Block{Type: BlockQuote, Text: "Penalties apply after 30 days."}, blocks[5])
	assert.Equal(t, Block{Type: BlockRule}, blocks[6])
	assert.Equal(t, [][]string{{"Requirement", "Status"}, {"Segregation", "Met"}, {"MRF", "Not met"}}, blocks[7].Rows)
	assert.Equal(t, BlockCode, blocks[8].Type)
}

func TestParseBlocksCode(t *testing.T) {
	blocks := ParseBlocks("```json\n{\"score\": 0.6}\n```\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, Block{Type: BlockCode, Language: "json", Text: "{\"score\": 0.6}"}, blocks[0])
}

func TestParseBlocksEmpty(t *testing.T) {
	blocks := ParseBlocks("")
	assert.NotNil(t, blocks)
	assert.Empty(t, blocks)
}

func TestSoftBreaksBecomeSpaces(t *testing.T) {
	blocks := ParseBlocks("first line\nsecond line")
	require.Len(t, blocks, 1)
	assert.Equal(t, "first line second line", blocks[0].Text)
}
