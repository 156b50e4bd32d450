package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/extract"
)

// memAliasLog is an in-memory AliasLog for tests.
type memAliasLog struct {
	mu      sync.Mutex
	records []driven.AliasRecord
}

func (l *memAliasLog) Append(rec driven.AliasRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *memAliasLog) Replay() ([]driven.AliasRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]driven.AliasRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

func (l *memAliasLog) Compact(recs []driven.AliasRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]driven.AliasRecord(nil), recs...)
	return nil
}

func (l *memAliasLog) Close() error { return nil }

// mockEmbedder returns fixed-size deterministic vectors.
type mockEmbedder struct {
	dims    int
	err     error
	queries []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.queries = append(m.queries, text)
	return make([]float32, m.dimensions()), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, m.dimensions())
	}
	return out, nil
}

func (m *mockEmbedder) dimensions() int {
	if m.dims == 0 {
		return 4
	}
	return m.dims
}

func (m *mockEmbedder) Dimensions() int              { return m.dimensions() }
func (m *mockEmbedder) ModelName() string            { return "mock-embedder" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockVectorStore serves scripted hits and records upserts.
type mockVectorStore struct {
	mu       sync.Mutex
	hits     []driven.StoreHit
	queryErr error

	upserted []domain.Chunk
	deleted  []string
}

func (m *mockVectorStore) Upsert(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, chunks...)
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, _ []float32, k int, filter driven.ChunkFilter) ([]driven.StoreHit, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []driven.StoreHit
	for _, h := range m.hits {
		if filter.Matches(h.Chunk) {
			out = append(out, h)
		}
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (m *mockVectorStore) DeleteByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, documentID)
	kept := m.upserted[:0]
	for _, c := range m.upserted {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	m.upserted = kept
	return nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserted), nil
}

func (m *mockVectorStore) Close() error { return nil }

// memRegistry is an in-memory DocumentRegistry.
type memRegistry struct {
	mu   sync.Mutex
	docs map[string]domain.Document
}

func newMemRegistry() *memRegistry {
	return &memRegistry{docs: make(map[string]domain.Document)}
}

func (r *memRegistry) Save(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memRegistry) Get(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (r *memRegistry) GetByChecksum(_ context.Context, checksum string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Checksum == checksum {
			d := doc
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRegistry) ListByMaterial(_ context.Context, materialID string) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Document
	for _, doc := range r.docs {
		if doc.MaterialID == materialID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memRegistry) List(_ context.Context) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (r *memRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

// mockGenerator returns a scripted completion and records the prompts.
type mockGenerator struct {
	response string
	err      error

	calls      int
	lastSystem string
	lastUser   string
}

func (g *mockGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	g.calls++
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	if g.err != nil {
		return "", g.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.response, nil
}

func (g *mockGenerator) ModelName() string            { return "mock-generator" }
func (g *mockGenerator) Ping(_ context.Context) error { return nil }
func (g *mockGenerator) Close() error                 { return nil }

// mockPrompts serves templates from a map.
type mockPrompts struct {
	templates map[string]string
}

func newMockPrompts() *mockPrompts {
	return &mockPrompts{templates: map[string]string{
		driven.PromptGroundedSystem: "Answer only from the passages. Cite with [n].",
		driven.PromptGroundedAnswer: "Question: {question}\nScenario: {scenario}\nPassages:\n{passages}",
		driven.PromptRefusal:        "I can't give a reliable answer to that from the documents on hand.",
	}}
}

func (p *mockPrompts) Load(name string) (string, error) {
	t, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %s: %w", name, domain.ErrNotFound)
	}
	return t, nil
}

// fakeExtractor returns scripted blocks.
type fakeExtractor struct {
	blocks func(docID string) []domain.Block
	err    error
	pages  int
}

func (f *fakeExtractor) Extract(_ context.Context, docID string, _ []byte) (*extract.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &extract.Result{Blocks: f.blocks(docID), PageCount: f.pages}, nil
}
