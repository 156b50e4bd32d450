// Package chromem provides a VectorStore adapter backed by chromem-go,
// an embedded vector database persisted to a local directory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const collectionName = "sds_chunks"

// upsertConcurrency bounds chromem's parallel document writes.
const upsertConcurrency = 4

// Store persists chunk embeddings in a chromem-go collection. Chunk
// metadata rides along as string key/values; query filters are applied
// in the adapter because the backing store only supports exact-match
// predicates.
type Store struct {
	mu  sync.Mutex
	db  *chromem.DB
	col *chromem.Collection
}

// externalOnly rejects implicit embedding: all vectors are computed by
// the embedding service and passed in explicitly.
func externalOnly(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("chunks carry precomputed embeddings")
}

// NewStore opens (or creates) a persistent store under dir.
func NewStore(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return newStore(db)
}

// NewMemoryStore creates an ephemeral store for tests and dry runs.
func NewMemoryStore() (*Store, error) {
	return newStore(chromem.NewDB())
}

func newStore(db *chromem.DB) (*Store, error) {
	col, err := db.GetOrCreateCollection(collectionName, nil, externalOnly)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return &Store{db: db, col: col}, nil
}

// Upsert writes chunks and their embeddings.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Metadata:  metadataOf(c),
			Embedding: vectors[i],
			Content:   c.Text,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.col.AddDocuments(ctx, docs, upsertConcurrency); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Query returns up to k chunks nearest the query vector that satisfy
// the filter. Set-membership filters are evaluated here, so the raw
// query spans the whole collection.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter driven.ChunkFilter) ([]driven.StoreHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.col.Count()
	if total == 0 || k <= 0 {
		return nil, nil
	}

	// Fetch everything when a filter is present; post-filtering a
	// truncated neighbour list would silently drop matches.
	n := k
	if !filter.Empty() || n > total {
		n = total
	}

	results, err := s.col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]driven.StoreHit, 0, k)
	for _, res := range results {
		chunk := chunkOf(res)
		if !filter.Matches(chunk) {
			continue
		}
		hits = append(hits, driven.StoreHit{Chunk: chunk, Score: float64(res.Similarity)})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// DeleteByDocument removes all chunks of one document.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col.Count() == 0 {
		return nil
	}
	if err := s.col.Delete(ctx, map[string]string{"document_id": documentID}, nil); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Count(), nil
}

// Close releases resources. chromem persists on write, so there is
// nothing to flush.
func (s *Store) Close() error {
	return nil
}

func metadataOf(c domain.Chunk) map[string]string {
	return map[string]string{
		"document_id":   c.DocumentID,
		"material_id":   c.MaterialID,
		"section":       strconv.Itoa(int(c.Section)),
		"section_title": c.SectionTitle,
		"page_min":      strconv.Itoa(c.PageMin),
		"page_max":      strconv.Itoa(c.PageMax),
		"method":        string(c.Method),
		"confidence":    strconv.FormatFloat(c.Confidence, 'f', 3, 64),
	}
}

func chunkOf(res chromem.Result) domain.Chunk {
	section, _ := strconv.Atoi(res.Metadata["section"])
	pageMin, _ := strconv.Atoi(res.Metadata["page_min"])
	pageMax, _ := strconv.Atoi(res.Metadata["page_max"])
	confidence, _ := strconv.ParseFloat(res.Metadata["confidence"], 64)
	return domain.Chunk{
		ID:           res.ID,
		DocumentID:   res.Metadata["document_id"],
		MaterialID:   res.Metadata["material_id"],
		Section:      domain.SectionNumber(section),
		SectionTitle: res.Metadata["section_title"],
		PageMin:      pageMin,
		PageMax:      pageMax,
		Text:         res.Content,
		Method:       domain.ExtractionMethod(res.Metadata["method"]),
		Confidence:   confidence,
	}
}
