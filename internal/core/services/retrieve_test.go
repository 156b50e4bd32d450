package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
)

func hit(id, materialID string, section domain.SectionNumber, page int, score float64) driven.StoreHit {
	return driven.StoreHit{
		Chunk: domain.Chunk{
			ID:         id,
			DocumentID: "doc-" + materialID,
			MaterialID: materialID,
			Section:    section,
			PageMin:    page,
			PageMax:    page,
			Text:       "passage " + id,
		},
		Score: score,
	}
}

func newTestRetriever(t *testing.T, hits []driven.StoreHit) *Retriever {
	t.Helper()
	idx, _ := newTestIndex(t)
	return NewRetriever(&mockEmbedder{}, &mockVectorStore{hits: hits}, idx)
}

func TestRetrieveDropsBelowScoreFloor(t *testing.T) {
	r := newTestRetriever(t, []driven.StoreHit{
		hit("a", "m1", 4, 1, 0.90),
		hit("b", "m1", 5, 2, 0.80),
		hit("c", "m1", 6, 3, 0.10),
	})

	got, err := r.Retrieve(context.Background(), "first aid", RetrieveOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Chunk.ID)
	assert.Equal(t, "b", got[1].Chunk.ID)
}

func TestRetrieveInsufficientContext(t *testing.T) {
	r := newTestRetriever(t, []driven.StoreHit{
		hit("a", "m1", 4, 1, 0.90),
	})

	got, err := r.Retrieve(context.Background(), "anything", RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrInsufficientContext)
	// What was found still comes back so the caller can point at it.
	assert.Len(t, got, 1)
}

func TestRetrieveEmptyStore(t *testing.T) {
	r := newTestRetriever(t, nil)

	_, err := r.Retrieve(context.Background(), "anything", RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrInsufficientContext)
}

func TestRetrieveDiversifiesPerMaterialSection(t *testing.T) {
	r := newTestRetriever(t, []driven.StoreHit{
		hit("a", "m1", 4, 1, 0.95),
		hit("b", "m1", 4, 2, 0.94),
		hit("c", "m1", 4, 3, 0.93),
		hit("d", "m1", 4, 4, 0.92),
		hit("e", "m2", 4, 1, 0.50),
	})

	got, err := r.Retrieve(context.Background(), "first aid", RetrieveOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// At most two from (m1, section 4); the third slot goes to m2.
	assert.Equal(t, "a", got[0].Chunk.ID)
	assert.Equal(t, "b", got[1].Chunk.ID)
	assert.Equal(t, "e", got[2].Chunk.ID)
}

func TestRetrieveTieBreakBySectionThenPage(t *testing.T) {
	r := newTestRetriever(t, []driven.StoreHit{
		hit("late", "m1", 7, 9, 0.80),
		hit("early", "m1", 4, 2, 0.80),
		hit("mid", "m1", 4, 5, 0.80),
	})

	got, err := r.Retrieve(context.Background(), "anything", RetrieveOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "early", got[0].Chunk.ID)
	assert.Equal(t, "mid", got[1].Chunk.ID)
	assert.Equal(t, "late", got[2].Chunk.ID)
}

func TestRetrieveHonoursK(t *testing.T) {
	var hits []driven.StoreHit
	for i := 0; i < 20; i++ {
		section := domain.SectionNumber(4 + i%8)
		material := "m1"
		if i%2 == 0 {
			material = "m2"
		}
		hits = append(hits, hit(string(rune('a'+i)), material, section, i+1, 0.9-float64(i)*0.01))
	}
	r := newTestRetriever(t, hits)

	got, err := r.Retrieve(context.Background(), "anything", RetrieveOptions{K: 4})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestRetrieveSectionFallback(t *testing.T) {
	// The corpus has nothing in section 4; a section-constrained query
	// must fall back to material-only filtering.
	r := newTestRetriever(t, []driven.StoreHit{
		hit("a", "m1", 7, 3, 0.90),
		hit("b", "m1", 10, 4, 0.85),
	})

	got, err := r.Retrieve(context.Background(), "storage", RetrieveOptions{
		Sections: []domain.SectionNumber{4},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRetrieveMaterialFilter(t *testing.T) {
	r := newTestRetriever(t, []driven.StoreHit{
		hit("a", "m1", 4, 1, 0.90),
		hit("b", "m2", 4, 1, 0.90),
		hit("c", "m1", 5, 2, 0.85),
	})

	got, err := r.Retrieve(context.Background(), "anything", RetrieveOptions{
		MaterialIDs: []string{"m1"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, rc := range got {
		assert.Equal(t, "m1", rc.Chunk.MaterialID)
	}
}

func TestRetrieveEmbedErrorPropagates(t *testing.T) {
	idx, _ := newTestIndex(t)
	r := NewRetriever(
		&mockEmbedder{err: domain.ErrEmbeddingUnavailable},
		&mockVectorStore{},
		idx,
	)

	_, err := r.Retrieve(context.Background(), "anything", RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestInferSections(t *testing.T) {
	tests := []struct {
		text string
		want []domain.SectionNumber
	}{
		{"I splashed acid on my skin, what now?", []domain.SectionNumber{4}},
		{"which extinguisher for a solvent fire", []domain.SectionNumber{5}},
		{"how do I clean up a mercury spill", []domain.SectionNumber{6}},
		{"can I store these on the same shelf", []domain.SectionNumber{7, 10}},
		{"what gloves do I need", []domain.SectionNumber{8}},
		{"how do I dispose of the waste", []domain.SectionNumber{13}},
		{"what is the boiling point", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferSections(tt.text), "text %q", tt.text)
	}
}
