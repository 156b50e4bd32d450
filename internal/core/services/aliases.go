package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/core/ports/driving"
	"github.com/labsafe/sdsassist/internal/logger"
)

// Ensure AliasIndex implements the interface.
var _ driving.MaterialAdmin = (*AliasIndex)(nil)

var casPattern = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// gradeTokens are trailing name qualifiers stripped when deriving a base
// alias, so "Hydrogen Peroxide 30% Solution" also resolves as
// "hydrogen peroxide".
var gradeTokens = map[string]bool{
	"solution":     true,
	"aqueous":      true,
	"reagent":      true,
	"grade":        true,
	"technical":    true,
	"acs":          true,
	"anhydrous":    true,
	"concentrated": true,
}

var numericToken = regexp.MustCompile(`^~?\d+(\.\d+)?\s*%?$|^%$`)

// AliasIndex is the single owner of material identity. It maps every
// known surface name to exactly one canonical material, entirely in
// memory, persisted through an append-only log that is replayed and
// compacted at startup.
type AliasIndex struct {
	mu  sync.RWMutex
	log driven.AliasLog

	materials map[string]*domain.Material // by material ID
	byAlias   map[string]string           // normalised alias -> material ID
	byCAS     map[string]string           // CAS number -> material ID
}

// NewAliasIndex rebuilds the index from the log and compacts the log to
// the rebuilt state.
func NewAliasIndex(log driven.AliasLog) (*AliasIndex, error) {
	idx := &AliasIndex{
		log:       log,
		materials: make(map[string]*domain.Material),
		byAlias:   make(map[string]string),
		byCAS:     make(map[string]string),
	}

	recs, err := log.Replay()
	if err != nil {
		return nil, fmt.Errorf("replay alias log: %w", err)
	}
	for _, rec := range recs {
		idx.apply(rec)
	}
	logger.Debug("Alias index: %d materials, %d aliases from %d log records",
		len(idx.materials), len(idx.byAlias), len(recs))

	if err := log.Compact(idx.snapshot()); err != nil {
		return nil, fmt.Errorf("compact alias log: %w", err)
	}
	return idx, nil
}

// apply replays one log record into the in-memory maps.
func (x *AliasIndex) apply(rec driven.AliasRecord) {
	switch rec.Op {
	case driven.AliasOpMaterial:
		m := x.materials[rec.MaterialID]
		if m == nil {
			m = &domain.Material{ID: rec.MaterialID}
			x.materials[rec.MaterialID] = m
		}
		if rec.DisplayName != "" {
			m.DisplayName = rec.DisplayName
		}
		if rec.CAS != "" {
			m.CAS = rec.CAS
			x.byCAS[rec.CAS] = m.ID
		}
		for _, code := range rec.HazardCodes {
			if !m.HasHazardClass(code) {
				m.HazardClasses = append(m.HazardClasses, code)
			}
		}

	case driven.AliasOpAdd:
		m := x.materials[rec.MaterialID]
		if m == nil {
			return
		}
		norm := domain.NormalizeAlias(rec.Alias)
		if norm == "" {
			return
		}
		if owner, taken := x.byAlias[norm]; taken && owner != m.ID {
			// A later material record claimed the alias; first writer wins.
			return
		}
		if !m.HasAlias(rec.Alias) {
			m.Aliases = append(m.Aliases, domain.Alias{Text: rec.Alias, Source: rec.Source})
		}
		x.byAlias[norm] = m.ID

	case driven.AliasOpRemove:
		m := x.materials[rec.MaterialID]
		if m == nil {
			return
		}
		norm := domain.NormalizeAlias(rec.Alias)
		if x.byAlias[norm] == m.ID {
			delete(x.byAlias, norm)
		}
		kept := m.Aliases[:0]
		for _, a := range m.Aliases {
			if domain.NormalizeAlias(a.Text) != norm {
				kept = append(kept, a)
			}
		}
		m.Aliases = kept
	}
}

// snapshot serialises the current state as a minimal record stream.
func (x *AliasIndex) snapshot() []driven.AliasRecord {
	ids := make([]string, 0, len(x.materials))
	for id := range x.materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now().UTC()
	var recs []driven.AliasRecord
	for _, id := range ids {
		m := x.materials[id]
		recs = append(recs, driven.AliasRecord{
			Timestamp:   now,
			Op:          driven.AliasOpMaterial,
			MaterialID:  id,
			DisplayName: m.DisplayName,
			CAS:         m.CAS,
			HazardCodes: m.HazardClasses,
		})
		for _, a := range m.Aliases {
			recs = append(recs, driven.AliasRecord{
				Timestamp:  now,
				Op:         driven.AliasOpAdd,
				MaterialID: id,
				Alias:      a.Text,
				Source:     a.Source,
			})
		}
	}
	return recs
}

// Register folds the identity facts of one ingested document into the
// index. It returns the canonical material the document belongs to and,
// when a CAS disagreement forced a separate material, a human-readable
// conflict diagnostic.
func (x *AliasIndex) Register(ctx context.Context, facts domain.DocumentFacts) (*domain.Material, string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	name := strings.TrimSpace(facts.PrimaryName)
	if name == "" {
		return nil, "", fmt.Errorf("%w: document facts carry no primary name", domain.ErrInvalidInput)
	}

	existing, conflict := x.match(facts)
	if existing != nil {
		if err := x.merge(existing, facts); err != nil {
			return nil, "", err
		}
		out := copyMaterial(existing)
		return &out, "", nil
	}

	m := &domain.Material{
		ID:          uuid.New().String(),
		DisplayName: name,
	}
	x.materials[m.ID] = m
	if err := x.append(driven.AliasRecord{
		Op:          driven.AliasOpMaterial,
		MaterialID:  m.ID,
		DisplayName: m.DisplayName,
	}); err != nil {
		return nil, "", err
	}
	if err := x.merge(m, facts); err != nil {
		return nil, "", err
	}

	if conflict != "" {
		logger.Warn("Alias conflict: %s", conflict)
	} else {
		logger.Info("New material: %s", m.DisplayName)
	}
	out := copyMaterial(m)
	return &out, conflict, nil
}

// match finds the existing material the facts belong to, if any. A CAS
// disagreement between the facts and an alias-matched material blocks
// the merge and yields a conflict diagnostic instead.
func (x *AliasIndex) match(facts domain.DocumentFacts) (*domain.Material, string) {
	if facts.CAS != "" {
		if id, ok := x.byCAS[facts.CAS]; ok {
			return x.materials[id], ""
		}
	}

	names := append([]string{facts.PrimaryName}, facts.Synonyms...)
	for _, n := range names {
		id, ok := x.byAlias[domain.NormalizeAlias(n)]
		if !ok {
			continue
		}
		m := x.materials[id]
		if facts.CAS != "" && m.CAS != "" && m.CAS != facts.CAS {
			return nil, fmt.Sprintf(
				"alias %q already names %s (CAS %s), but the document declares CAS %s; a separate material was created",
				n, m.DisplayName, m.CAS, facts.CAS)
		}
		return m, ""
	}
	return nil, ""
}

// merge folds facts into an existing material, logging each change.
func (x *AliasIndex) merge(m *domain.Material, facts domain.DocumentFacts) error {
	if facts.CAS != "" && m.CAS == "" {
		m.CAS = facts.CAS
		x.byCAS[facts.CAS] = m.ID
		if err := x.append(driven.AliasRecord{
			Op: driven.AliasOpMaterial, MaterialID: m.ID, DisplayName: m.DisplayName, CAS: facts.CAS,
		}); err != nil {
			return err
		}
	}
	for _, code := range facts.HazardCodes {
		if !m.HasHazardClass(code) {
			m.HazardClasses = append(m.HazardClasses, code)
			if err := x.append(driven.AliasRecord{
				Op: driven.AliasOpMaterial, MaterialID: m.ID, DisplayName: m.DisplayName, HazardCodes: []string{code},
			}); err != nil {
				return err
			}
		}
	}

	type cand struct {
		text   string
		source domain.AliasSource
	}
	cands := []cand{{facts.PrimaryName, domain.AliasSourceTradeName}}
	if facts.CAS != "" {
		cands = append(cands, cand{facts.CAS, domain.AliasSourceCAS})
	}
	for _, s := range facts.Synonyms {
		cands = append(cands, cand{s, domain.AliasSourceSynonym})
	}
	for _, c := range cands {
		if derived := deriveBase(c.text); derived != "" {
			cands = append(cands, cand{derived, domain.AliasSourceSynonym})
		}
	}

	for _, c := range cands {
		if err := x.addAliasLocked(m, c.text, c.source); err != nil {
			return err
		}
	}
	return nil
}

// addAliasLocked records an alias for a material. Aliases owned by
// another material are skipped silently during merges; the caller path
// that needs a hard error is AddAlias.
func (x *AliasIndex) addAliasLocked(m *domain.Material, text string, source domain.AliasSource) error {
	norm := domain.NormalizeAlias(text)
	if norm == "" {
		return nil
	}
	if owner, taken := x.byAlias[norm]; taken {
		if owner != m.ID {
			logger.Debug("Alias %q already owned by another material, skipping", text)
		}
		return nil
	}
	m.Aliases = append(m.Aliases, domain.Alias{Text: strings.TrimSpace(text), Source: source})
	x.byAlias[norm] = m.ID
	return x.append(driven.AliasRecord{
		Op: driven.AliasOpAdd, MaterialID: m.ID, Alias: strings.TrimSpace(text), Source: source,
	})
}

func (x *AliasIndex) append(rec driven.AliasRecord) error {
	rec.Timestamp = time.Now().UTC()
	if err := x.log.Append(rec); err != nil {
		return fmt.Errorf("append alias log: %w", err)
	}
	return nil
}

// Resolve maps a surface name to its canonical material. Resolution
// order: exact CAS match, exact normalised alias, then the longest
// token prefix of the query that is a known alias. Returns nil, nil
// when nothing matches.
func (x *AliasIndex) Resolve(ctx context.Context, text string) (*domain.Material, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty material name", domain.ErrInvalidInput)
	}

	if casPattern.MatchString(trimmed) {
		if id, ok := x.byCAS[trimmed]; ok {
			m := copyMaterial(x.materials[id])
			return &m, nil
		}
	}

	norm := domain.NormalizeAlias(trimmed)
	if id, ok := x.byAlias[norm]; ok {
		m := copyMaterial(x.materials[id])
		return &m, nil
	}

	tokens := strings.Fields(norm)
	for n := len(tokens) - 1; n >= 1; n-- {
		prefix := strings.Join(tokens[:n], " ")
		if id, ok := x.byAlias[prefix]; ok {
			m := copyMaterial(x.materials[id])
			return &m, nil
		}
	}
	return nil, nil
}

// Materials lists all known materials sorted by display name.
func (x *AliasIndex) Materials(ctx context.Context) ([]domain.Material, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]domain.Material, 0, len(x.materials))
	for _, m := range x.materials {
		out = append(out, copyMaterial(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out, nil
}

// AddAlias records an extra alias for an existing material. Unlike
// ingestion-time merging, a clash with another material is an error.
func (x *AliasIndex) AddAlias(ctx context.Context, materialID, alias string, source domain.AliasSource) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	m := x.materials[materialID]
	if m == nil {
		return fmt.Errorf("material %s: %w", materialID, domain.ErrNotFound)
	}
	if !source.IsValid() {
		return fmt.Errorf("%w: unknown alias source %q", domain.ErrInvalidInput, source)
	}
	norm := domain.NormalizeAlias(alias)
	if norm == "" {
		return fmt.Errorf("%w: empty alias", domain.ErrInvalidInput)
	}
	if owner, taken := x.byAlias[norm]; taken {
		if owner == materialID {
			return nil
		}
		return fmt.Errorf("alias %q already names %s: %w",
			alias, x.materials[owner].DisplayName, domain.ErrAliasConflict)
	}
	return x.addAliasLocked(m, alias, source)
}

// Get returns a material by ID, nil when unknown.
func (x *AliasIndex) Get(materialID string) *domain.Material {
	x.mu.RLock()
	defer x.mu.RUnlock()
	m := x.materials[materialID]
	if m == nil {
		return nil
	}
	out := copyMaterial(m)
	return &out
}

// deriveBase strips trailing concentration and grade qualifiers from a
// name, returning the shortened form or "" when nothing was stripped.
func deriveBase(name string) string {
	tokens := strings.Fields(domain.NormalizeAlias(name))
	n := len(tokens)
	for n > 1 {
		t := tokens[n-1]
		if gradeTokens[t] || numericToken.MatchString(t) {
			n--
			continue
		}
		break
	}
	if n == len(tokens) || n == 0 {
		return ""
	}
	return strings.Join(tokens[:n], " ")
}

func copyMaterial(m *domain.Material) domain.Material {
	out := *m
	out.Aliases = append([]domain.Alias(nil), m.Aliases...)
	out.HazardClasses = append([]string(nil), m.HazardClasses...)
	return out
}
