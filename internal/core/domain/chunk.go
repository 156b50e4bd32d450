package domain

// Chunk is the unit of retrieval: a bounded, section-contained fragment
// built from consecutive blocks of one document. A chunk never spans two
// section numbers and never mixes digital and OCR text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning document.
	DocumentID string

	// MaterialID links to the document's primary material.
	MaterialID string

	// Section is the SDS section the chunk belongs to.
	Section SectionNumber

	// SectionTitle is the heading text that opened the section.
	SectionTitle string

	// PageMin and PageMax are the page range of the contributing blocks.
	PageMin int
	PageMax int

	// Text is the chunk content, targeting 300-800 tokens.
	Text string

	// Method records whether the text came from the digital or OCR path.
	Method ExtractionMethod

	// Confidence is the minimum confidence of the contributing blocks.
	Confidence float64
}

// Citation points a reader at the SDS passage backing a claim.
// Citations are derived at query time and never persisted.
type Citation struct {
	// MaterialName is the display name of the cited material.
	MaterialName string

	// Section is the SDS section number of the cited chunk.
	Section SectionNumber

	// Page is the first page of the cited chunk.
	Page int
}

// RankedChunk is a retrieval hit: a chunk with its similarity score.
type RankedChunk struct {
	Chunk Chunk

	// Score is the cosine similarity to the query, in [0,1].
	Score float64

	// MaterialName is the display name of the chunk's material,
	// hydrated for citation rendering.
	MaterialName string
}

// Citation derives the citation triple for a ranked chunk.
func (r RankedChunk) Citation() Citation {
	return Citation{
		MaterialName: r.MaterialName,
		Section:      r.Chunk.Section,
		Page:         r.Chunk.PageMin,
	}
}
