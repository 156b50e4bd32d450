// Package rules implements the deterministic hazard screener: a pure
// rule engine evaluated before any generative step, whose findings can
// veto or augment generated output.
//
// Rules and material class definitions are declarative (YAML), so
// additions require no code changes to the engine.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// casShape recognises CAS registry numbers inside match entries, so an
// entry can pin a specific substance instead of a class tag.
var casShape = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// Class assigns a tag to materials by CAS number, name pattern or GHS
// hazard code. Tags are the vocabulary rule matches are written in.
type Class struct {
	// Tag is the class identifier referenced by rule match entries.
	Tag string `yaml:"tag"`

	// CAS lists registry numbers that belong to the class.
	CAS []string `yaml:"cas,omitempty"`

	// NamePatterns are lowercase substrings matched against a material's
	// display name and aliases.
	NamePatterns []string `yaml:"name_patterns,omitempty"`

	// HazardCodes are GHS H-codes that place a material in the class.
	HazardCodes []string `yaml:"hazard_codes,omitempty"`
}

// Rule is one deterministic mixture predicate. A rule fires when every
// match entry is covered by a distinct participant; matching is by
// presence, not order.
type Rule struct {
	// ID identifies the rule; the rule set is ordered by (severity desc,
	// ID asc) for deterministic reporting.
	ID string `yaml:"id"`

	// Severity is one of info, warn, danger, forbid.
	Severity domain.Severity `yaml:"severity"`

	// Match lists class tags or CAS numbers, with multiplicity: listing
	// a tag twice requires two distinct participants of that class.
	Match []string `yaml:"match"`

	// MessageTemplate is the finding text; the {materials} slot is
	// replaced with the participant display names.
	MessageTemplate string `yaml:"message_template"`

	// References are SDS section numbers the reader should consult.
	References []int `yaml:"references,omitempty"`
}

// Config is the root of the rule configuration file.
type Config struct {
	Classes []Class `yaml:"classes"`
	Rules   []Rule  `yaml:"rules"`
}

// Validate checks structural soundness of the configuration.
func (c *Config) Validate() error {
	tags := make(map[string]bool, len(c.Classes))
	for i, cl := range c.Classes {
		if cl.Tag == "" {
			return fmt.Errorf("class %d: missing tag", i)
		}
		if tags[cl.Tag] {
			return fmt.Errorf("class %q: duplicate tag", cl.Tag)
		}
		tags[cl.Tag] = true
	}

	ids := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r.ID == "" {
			return fmt.Errorf("rule %d: missing id", i)
		}
		if ids[r.ID] {
			return fmt.Errorf("rule %q: duplicate id", r.ID)
		}
		ids[r.ID] = true
		if !r.Severity.IsValid() {
			return fmt.Errorf("rule %q: unknown severity %q", r.ID, r.Severity)
		}
		if len(r.Match) == 0 {
			return fmt.Errorf("rule %q: empty match", r.ID)
		}
		for _, entry := range r.Match {
			if !tags[entry] && !casShape.MatchString(entry) {
				return fmt.Errorf("rule %q: match entry %q is neither a known class tag nor a CAS number", r.ID, entry)
			}
		}
		if r.MessageTemplate == "" {
			return fmt.Errorf("rule %q: missing message_template", r.ID)
		}
		for _, ref := range r.References {
			if !domain.SectionNumber(ref).IsValid() {
				return fmt.Errorf("rule %q: reference %d is not an SDS section", r.ID, ref)
			}
		}
	}
	return nil
}

// sortRules orders the rule set by (severity desc, rule ID asc).
func sortRules(rs []Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Severity.Rank() != rs[j].Severity.Rank() {
			return rs[i].Severity.Rank() > rs[j].Severity.Rank()
		}
		return rs[i].ID < rs[j].ID
	})
}

// classify returns the class tags a material belongs to.
func classify(classes []Class, m domain.Material) map[string]bool {
	tags := map[string]bool{}
	names := make([]string, 0, len(m.Aliases)+1)
	names = append(names, domain.NormalizeAlias(m.DisplayName))
	for _, a := range m.Aliases {
		names = append(names, domain.NormalizeAlias(a.Text))
	}

	for _, cl := range classes {
		if matchesClass(cl, m, names) {
			tags[cl.Tag] = true
		}
	}
	return tags
}

func matchesClass(cl Class, m domain.Material, names []string) bool {
	for _, cas := range cl.CAS {
		if m.CAS != "" && m.CAS == cas {
			return true
		}
	}
	for _, pat := range cl.NamePatterns {
		for _, name := range names {
			if strings.Contains(name, pat) {
				return true
			}
		}
	}
	for _, code := range cl.HazardCodes {
		if m.HasHazardClass(code) {
			return true
		}
	}
	return false
}
