package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

func blockIn(section domain.SectionNumber, method domain.ExtractionMethod, page int, text string) domain.Block {
	return domain.Block{
		DocumentID: "doc-1",
		Page:       page,
		Text:       text,
		Method:     method,
		Confidence: 1.0,
		Section:    section,
		SectionTitle: section.Title(),
	}
}

// sentencePara builds a paragraph of n short sentences.
func sentencePara(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("Rinse the affected area with plenty of clean running water. ")
	}
	return sb.String()
}

func TestSplitNeverCrossesSections(t *testing.T) {
	c := New(WithTokenBounds(10, 20, 40))
	blocks := []domain.Block{
		blockIn(4, domain.ExtractionDigital, 2, sentencePara(3)),
		blockIn(5, domain.ExtractionDigital, 3, sentencePara(3)),
	}
	chunks := c.Split(blocks, "doc-1", "mat-1")
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Contains(t, []domain.SectionNumber{4, 5}, ch.Section)
	}
	// Every chunk carries exactly one section; the two blocks cannot share one.
	sections := map[domain.SectionNumber]bool{}
	for _, ch := range chunks {
		sections[ch.Section] = true
	}
	assert.Len(t, sections, 2)
}

func TestSplitNeverMixesMethods(t *testing.T) {
	c := New(WithTokenBounds(5, 200, 400))
	blocks := []domain.Block{
		blockIn(4, domain.ExtractionDigital, 1, sentencePara(2)),
		blockIn(4, domain.ExtractionOCR, 2, sentencePara(2)),
	}
	chunks := c.Split(blocks, "doc-1", "mat-1")
	require.Len(t, chunks, 2)
	assert.Equal(t, domain.ExtractionDigital, chunks[0].Method)
	assert.Equal(t, domain.ExtractionOCR, chunks[1].Method)
}

func TestSplitRespectsMaxTokens(t *testing.T) {
	c := New(WithTokenBounds(30, 50, 80))
	blocks := []domain.Block{
		blockIn(7, domain.ExtractionDigital, 1, sentencePara(40)),
	}
	chunks := c.Split(blocks, "doc-1", "mat-1")
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, estimateTokens(ch.Text), 80+5, "chunk well over max: %d tokens", estimateTokens(ch.Text))
	}
}

func TestSplitPageRange(t *testing.T) {
	c := New(WithTokenBounds(5, 500, 800))
	blocks := []domain.Block{
		blockIn(4, domain.ExtractionDigital, 2, sentencePara(4)),
		blockIn(4, domain.ExtractionDigital, 3, sentencePara(4)),
	}
	chunks := c.Split(blocks, "doc-1", "mat-1")
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].PageMin)
	assert.Equal(t, 3, chunks[0].PageMax)
}

func TestSplitConfidenceIsMinimum(t *testing.T) {
	c := New(WithTokenBounds(5, 500, 800))
	low := blockIn(6, domain.ExtractionOCR, 1, sentencePara(2))
	low.Confidence = 0.62
	high := blockIn(6, domain.ExtractionOCR, 2, sentencePara(2))
	high.Confidence = 0.91
	chunks := c.Split([]domain.Block{low, high}, "doc-1", "mat-1")
	require.Len(t, chunks, 1)
	assert.InDelta(t, 0.62, chunks[0].Confidence, 0.001)
}

func TestSplitSkipsEmptyBlocks(t *testing.T) {
	c := New()
	chunks := c.Split([]domain.Block{
		blockIn(4, domain.ExtractionDigital, 1, "   \n  "),
	}, "doc-1", "mat-1")
	assert.Empty(t, chunks)
}

func TestSplitAssignsIdentity(t *testing.T) {
	c := New(WithTokenBounds(1, 500, 800))
	chunks := c.Split([]domain.Block{
		blockIn(10, domain.ExtractionDigital, 5, sentencePara(2)),
	}, "doc-9", "mat-7")
	require.Len(t, chunks, 1)
	assert.NotEmpty(t, chunks[0].ID)
	assert.Equal(t, "doc-9", chunks[0].DocumentID)
	assert.Equal(t, "mat-7", chunks[0].MaterialID)
	assert.Equal(t, domain.SectionNumber(10), chunks[0].Section)
}

func TestFitPiecesHardCutsGiantSentence(t *testing.T) {
	c := New(WithTokenBounds(5, 10, 20))
	giant := strings.Repeat("x", 20*charsPerToken*3)
	pieces := c.fitPieces(giant)
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 20*charsPerToken)
	}
}
