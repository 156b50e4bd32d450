package driven

import (
	"context"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// ChunkFilter constrains a vector store query. Both constraints are
// set-membership predicates; empty slices mean unconstrained. Constraints
// combine as a conjunction.
type ChunkFilter struct {
	// MaterialIDs restricts hits to chunks of these materials.
	MaterialIDs []string

	// Sections restricts hits to these SDS sections.
	Sections []domain.SectionNumber
}

// Empty reports whether the filter constrains nothing.
func (f ChunkFilter) Empty() bool {
	return len(f.MaterialIDs) == 0 && len(f.Sections) == 0
}

// Matches reports whether a chunk satisfies the filter.
func (f ChunkFilter) Matches(c domain.Chunk) bool {
	if len(f.MaterialIDs) > 0 && !containsString(f.MaterialIDs, c.MaterialID) {
		return false
	}
	if len(f.Sections) > 0 && !containsSection(f.Sections, c.Section) {
		return false
	}
	return true
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func containsSection(xs []domain.SectionNumber, want domain.SectionNumber) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

// StoreHit is a similarity search result.
type StoreHit struct {
	// Chunk is the matched chunk with its metadata.
	Chunk domain.Chunk

	// Score is the cosine similarity to the query vector, in [0,1].
	Score float64
}

// VectorStore persists chunk embeddings and answers similarity queries.
// Filters are applied server-side when the backing store supports them,
// client-side otherwise; either way results honour the filter.
type VectorStore interface {
	// Upsert writes chunks and their embeddings. Vectors and chunks are
	// parallel slices.
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error

	// Query returns up to k chunks nearest the query vector that satisfy
	// the filter, ordered by descending similarity.
	Query(ctx context.Context, vector []float32, k int, filter ChunkFilter) ([]StoreHit, error)

	// DeleteByDocument removes all chunks of one document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
