package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// frag is a test helper for positioned text runs.
func frag(text string, x, y float64) fragment {
	return fragment{text: text, x: x, y: y, w: float64(len(text)) * 5, size: 10}
}

func TestSplitColumnsSingleColumn(t *testing.T) {
	var frags []fragment
	for i := 0; i < 10; i++ {
		frags = append(frags, frag("line", 50, float64(700-12*i)))
	}
	cols := splitColumns(frags)
	assert.Len(t, cols, 1)
}

func TestSplitColumnsTwoColumns(t *testing.T) {
	var frags []fragment
	for i := 0; i < 8; i++ {
		frags = append(frags, frag("left", 40, float64(700-12*i)))
		frags = append(frags, frag("right", 320, float64(700-12*i)))
	}
	cols := splitColumns(frags)
	require.Len(t, cols, 2)
	for _, f := range cols[0] {
		assert.Equal(t, "left", f.text)
	}
	for _, f := range cols[1] {
		assert.Equal(t, "right", f.text)
	}
}

func TestAssemblePageReadingOrder(t *testing.T) {
	// Two columns; reading order must finish the left column before the
	// right one, top to bottom within each.
	frags := []fragment{
		frag("L1", 40, 700), frag("R1", 320, 700),
		frag("L2", 40, 688), frag("R2", 320, 688),
		frag("L3", 40, 676), frag("R3", 320, 676),
		frag("L4", 40, 664), frag("R4", 320, 664),
	}
	blocks := assemblePage(frags, "doc-1", 3)
	require.NotEmpty(t, blocks)

	var text strings.Builder
	for _, b := range blocks {
		text.WriteString(b.Text)
		text.WriteByte('\n')
		assert.Equal(t, "doc-1", b.DocumentID)
		assert.Equal(t, 3, b.Page)
		assert.Equal(t, domain.ExtractionDigital, b.Method)
		assert.Equal(t, 1.0, b.Confidence)
	}
	joined := text.String()
	assert.Less(t, strings.Index(joined, "L4"), strings.Index(joined, "R1"),
		"left column should be read before right column")
}

func TestBuildLinesMergesBaseline(t *testing.T) {
	frags := []fragment{
		frag("Hydrofluoric", 40, 700),
		frag("acid", 110, 700.5), // slight baseline wobble
		frag("Section", 40, 680),
	}
	lines := buildLines(frags)
	require.Len(t, lines, 2)
	assert.Len(t, lines[0].frags, 2)
	assert.Equal(t, "Hydrofluoric", lines[0].frags[0].text)
	assert.Equal(t, "acid", lines[0].frags[1].text)
}

func TestBuildBlocksSplitsOnParagraphGap(t *testing.T) {
	lines := buildLines([]fragment{
		frag("para one a", 40, 700),
		frag("para one b", 40, 688),
		frag("para two", 40, 640), // 48pt gap, well past 1.8x line height
	})
	blocks := buildBlocks(lines, "doc", 1)
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0].Text, "para one a")
	assert.Contains(t, blocks[0].Text, "para one b")
	assert.Contains(t, blocks[1].Text, "para two")
}

func TestBlockRegionAndSpacing(t *testing.T) {
	lines := buildLines([]fragment{
		frag("calcium", 40, 700),
		frag("gluconate", 80, 700),
	})
	blocks := buildBlocks(lines, "doc", 1)
	require.Len(t, blocks, 1)
	assert.Equal(t, "calcium gluconate", blocks[0].Text)
	require.NotNil(t, blocks[0].Region)
	assert.InDelta(t, 40, blocks[0].Region.X0, 0.01)
}

func TestTableCandidateFlag(t *testing.T) {
	// Rows of short cells with wide aligned gaps look tabular.
	var frags []fragment
	for row := 0; row < 4; row++ {
		y := float64(700 - 14*row)
		frags = append(frags,
			frag("cell", 40, y),
			frag("cell", 180, y),
			frag("cell", 320, y),
			frag("cell", 460, y),
		)
	}
	lines := buildLines(frags)
	blocks := buildBlocks(lines, "doc", 1)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].TableCandidate)
}

func TestProseIsNotTableCandidate(t *testing.T) {
	lines := buildLines([]fragment{
		frag("Wash off immediately with plenty of water", 40, 700),
		frag("for at least 15 minutes.", 40, 688),
	})
	blocks := buildBlocks(lines, "doc", 1)
	require.Len(t, blocks, 1)
	assert.False(t, blocks[0].TableCandidate)
}
