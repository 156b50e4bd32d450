package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/logger"
)

// Retrieval defaults.
const (
	// DefaultRetrieveK is the number of passages handed to the generator.
	DefaultRetrieveK = 6

	// DefaultMinScore floors the cosine similarity of usable passages.
	DefaultMinScore = 0.25

	// DefaultMinHits is the minimum number of usable passages below
	// which retrieval reports insufficient context.
	DefaultMinHits = 2

	// maxPerMaterialSection caps passages from one (material, section)
	// pair so a single document cannot crowd out the rest.
	maxPerMaterialSection = 2

	// overfetchFactor widens the raw store query so filtering and
	// diversification still leave k candidates.
	overfetchFactor = 4
)

// topicHints map query phrasing to the SDS sections that answer it.
// Applied only when the caller supplies no explicit sections.
var topicHints = []struct {
	pattern  *regexp.Regexp
	sections []domain.SectionNumber
}{
	{regexp.MustCompile(`(?i)\b(first aid|splash|exposed|swallow|ingest|inhal|skin|eye|burns?\b)`), []domain.SectionNumber{4}},
	{regexp.MustCompile(`(?i)\b(fire|extinguish|ignit|flame|burning|flammab)`), []domain.SectionNumber{5}},
	{regexp.MustCompile(`(?i)\b(spill|leak|release|clean ?up|absorb)`), []domain.SectionNumber{6}},
	{regexp.MustCompile(`(?i)\b(stor(e|age|ed|ing)\b|keep away|shelf|container)`), []domain.SectionNumber{7, 10}},
	{regexp.MustCompile(`(?i)\b(glove|goggle|respirator|ppe\b|protective|exposure limit)`), []domain.SectionNumber{8}},
	{regexp.MustCompile(`(?i)\b(dispos|waste)`), []domain.SectionNumber{13}},
}

// InferSections guesses the SDS sections a free-form question is about.
// Returns nil when no hint matches; nil means unconstrained retrieval.
func InferSections(text string) []domain.SectionNumber {
	for _, h := range topicHints {
		if h.pattern.MatchString(text) {
			return h.sections
		}
	}
	return nil
}

// RetrieveOptions tune one retrieval call. Zero values take defaults.
type RetrieveOptions struct {
	// MaterialIDs restricts hits to these materials.
	MaterialIDs []string

	// Sections restricts hits to these SDS sections. When the strict
	// query leaves too few passages, retrieval retries without the
	// section constraint before giving up.
	Sections []domain.SectionNumber

	// K is the number of passages to return.
	K int

	// MinScore floors the usable similarity.
	MinScore float64

	// MinHits is the insufficiency threshold.
	MinHits int
}

// Retriever finds the passages that ground an answer.
type Retriever struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	aliases  *AliasIndex

	// tuned overrides the package defaults for calls that don't set
	// their own K, MinScore or MinHits.
	tuned RetrieveOptions
}

// NewRetriever creates a retriever.
func NewRetriever(embedder driven.EmbeddingService, store driven.VectorStore, aliases *AliasIndex) *Retriever {
	return &Retriever{embedder: embedder, store: store, aliases: aliases}
}

// Tune sets the retrieval defaults used when a call leaves them zero.
// Non-positive values keep the package defaults.
func (r *Retriever) Tune(k int, minScore float64, minHits int) {
	r.tuned = RetrieveOptions{K: k, MinScore: minScore, MinHits: minHits}
}

// Retrieve embeds the query and returns the top passages that clear the
// similarity floor, at most two per (material, section). When fewer than
// MinHits passages survive, it returns domain.ErrInsufficientContext
// together with whatever it found, so the caller can surface pointers.
func (r *Retriever) Retrieve(ctx context.Context, text string, opts RetrieveOptions) ([]domain.RankedChunk, error) {
	k := opts.K
	if k <= 0 {
		k = r.tuned.K
	}
	if k <= 0 {
		k = DefaultRetrieveK
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = r.tuned.MinScore
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	minHits := opts.MinHits
	if minHits <= 0 {
		minHits = r.tuned.MinHits
	}
	if minHits <= 0 {
		minHits = DefaultMinHits
	}

	logger.Debug("Retrieve: k=%d min_score=%.2f materials=%v sections=%v",
		k, minScore, opts.MaterialIDs, opts.Sections)

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := driven.ChunkFilter{MaterialIDs: opts.MaterialIDs, Sections: opts.Sections}
	ranked, err := r.query(ctx, vector, k, minScore, filter)
	if err != nil {
		return nil, err
	}

	// The strict section constraint may be too narrow for a thin corpus;
	// fall back to material-only filtering before declaring insufficiency.
	if len(ranked) < minHits && len(opts.Sections) > 0 {
		logger.Debug("Retrieve: only %d hits with section filter, retrying unfiltered", len(ranked))
		ranked, err = r.query(ctx, vector, k, minScore,
			driven.ChunkFilter{MaterialIDs: opts.MaterialIDs})
		if err != nil {
			return nil, err
		}
	}

	if len(ranked) < minHits {
		logger.Info("Retrieve: %d usable passages, below floor of %d", len(ranked), minHits)
		return ranked, fmt.Errorf("%d usable passages: %w", len(ranked), domain.ErrInsufficientContext)
	}
	logger.Debug("Retrieve: %d passages", len(ranked))
	return ranked, nil
}

func (r *Retriever) query(
	ctx context.Context, vector []float32, k int, minScore float64, filter driven.ChunkFilter,
) ([]domain.RankedChunk, error) {
	hits, err := r.store.Query(ctx, vector, k*overfetchFactor, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= minScore {
			kept = append(kept, h)
		}
	}

	// Stable order for equal scores: section, then page.
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Section != b.Chunk.Section {
			return a.Chunk.Section < b.Chunk.Section
		}
		return a.Chunk.PageMin < b.Chunk.PageMin
	})

	type key struct {
		material string
		section  domain.SectionNumber
	}
	perKey := make(map[key]int)

	ranked := make([]domain.RankedChunk, 0, k)
	for _, h := range kept {
		kk := key{h.Chunk.MaterialID, h.Chunk.Section}
		if perKey[kk] >= maxPerMaterialSection {
			continue
		}
		perKey[kk]++
		ranked = append(ranked, domain.RankedChunk{
			Chunk:        h.Chunk,
			Score:        h.Score,
			MaterialName: r.materialName(h.Chunk.MaterialID),
		})
		if len(ranked) == k {
			break
		}
	}
	return ranked, nil
}

func (r *Retriever) materialName(materialID string) string {
	if m := r.aliases.Get(materialID); m != nil {
		return m.DisplayName
	}
	return ""
}
