package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labsafe/sdsassist/internal/chunker"
	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/core/ports/driving"
	"github.com/labsafe/sdsassist/internal/extract"
	"github.com/labsafe/sdsassist/internal/logger"
	"github.com/labsafe/sdsassist/internal/segment"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultIngestWorkers bounds the directory ingestion pool.
const DefaultIngestWorkers = 4

// Extractor turns PDF bytes into ordered text blocks.
// Satisfied by extract.Extractor; narrowed here so tests can fake it.
type Extractor interface {
	Extract(ctx context.Context, docID string, data []byte) (*extract.Result, error)
}

// IngestService runs the ingestion pipeline: extract, segment, resolve
// identity, chunk, embed, store.
type IngestService struct {
	extractor Extractor
	chunker   *chunker.Chunker
	aliases   *AliasIndex
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	registry  driven.DocumentRegistry
	workers   int
}

// NewIngestService creates an ingest service. workers bounds the
// directory ingestion pool; values below 1 fall back to the default.
func NewIngestService(
	extractor Extractor,
	ch *chunker.Chunker,
	aliases *AliasIndex,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	registry driven.DocumentRegistry,
	workers int,
) *IngestService {
	if workers < 1 {
		workers = DefaultIngestWorkers
	}
	return &IngestService{
		extractor: extractor,
		chunker:   ch,
		aliases:   aliases,
		embedder:  embedder,
		store:     store,
		registry:  registry,
		workers:   workers,
	}
}

// IngestFile ingests one PDF from disk.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*driving.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.IngestBytes(ctx, filepath.Base(path), data)
}

// IngestBytes ingests one PDF supplied as bytes. Re-ingesting identical
// bytes is a no-op; a changed SDS for a known material replaces the
// material's previous chunks atomically from the caller's perspective.
func (s *IngestService) IngestBytes(ctx context.Context, filename string, data []byte) (*driving.IngestReport, error) {
	logger.Section("Ingest: " + filename)

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	logger.Debug("Checksum: %s", checksum)

	if existing, err := s.registry.GetByChecksum(ctx, checksum); err == nil {
		logger.Info("Already ingested as %s, skipping", existing.Filename)
		report := &driving.IngestReport{Document: *existing, Skipped: true}
		if m := s.aliases.Get(existing.MaterialID); m != nil {
			report.Material = *m
		}
		return report, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checksum lookup: %w", err)
	}

	docID := uuid.New().String()

	res, err := s.extractor.Extract(ctx, docID, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	logger.Debug("Extracted %d blocks from %d pages (%d dropped)",
		len(res.Blocks), res.PageCount, res.DroppedPages)

	blocks, facts := segment.Segment(res.Blocks, filename)
	logger.Debug("Identity: name=%q cas=%q vendor=%q synonyms=%d",
		facts.PrimaryName, facts.CAS, facts.Vendor, len(facts.Synonyms))

	material, conflict, err := s.aliases.Register(ctx, facts)
	if err != nil {
		return nil, fmt.Errorf("register material: %w", err)
	}

	// Earlier revisions of the same material are captured now but removed
	// only after the new revision is fully stored, so a failed embed or
	// upsert never loses the data already indexed.
	old, err := s.registry.ListByMaterial(ctx, material.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents for material: %w", err)
	}

	chunks := s.chunker.Split(blocks, docID, material.ID)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no usable text in %s", domain.ErrExtractionFailed, filename)
	}
	logger.Debug("Chunked into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if err := s.store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	doc := domain.Document{
		ID:           docID,
		Filename:     filename,
		Checksum:     checksum,
		MaterialID:   material.ID,
		Vendor:       facts.Vendor,
		RevisionDate: facts.RevisionDate,
		PageCount:    res.PageCount,
		DroppedPages: res.DroppedPages,
		ChunkCount:   len(chunks),
		IngestedAt:   time.Now().UTC(),
	}
	if err := s.registry.Save(ctx, &doc); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}

	if err := s.removeRevisions(ctx, old); err != nil {
		return nil, err
	}

	logger.Info("Ingested %s: %d chunks for %s", filename, len(chunks), material.DisplayName)
	return &driving.IngestReport{
		Document: doc,
		Material: *material,
		Chunks:   len(chunks),
		Replaced: len(old) > 0,
		Conflict: conflict,
	}, nil
}

// removeRevisions deletes superseded documents and their chunks. Runs
// only once the replacement revision is in both the store and the
// registry.
func (s *IngestService) removeRevisions(ctx context.Context, old []domain.Document) error {
	for _, doc := range old {
		logger.Info("Replacing earlier revision %s (%s)", doc.Filename, doc.ID)
		if err := s.store.DeleteByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete chunks of %s: %w", doc.ID, err)
		}
		if err := s.registry.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// IngestDir ingests every PDF under dir with a bounded worker pool.
// Failures are collected per file; one bad document never aborts the
// batch.
func (s *IngestService) IngestDir(ctx context.Context, dir string) (*driving.BatchReport, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	logger.Info("Found %d PDF files under %s", len(paths), dir)

	report := &driving.BatchReport{Failed: make(map[string]error)}
	if len(paths) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan string)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				r, err := s.IngestFile(ctx, path)
				mu.Lock()
				if err != nil {
					report.Failed[path] = err
				} else {
					report.Reports = append(report.Reports, *r)
				}
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return report, ctx.Err()
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(report.Reports, func(i, j int) bool {
		return report.Reports[i].Document.Filename < report.Reports[j].Document.Filename
	})
	return report, nil
}
