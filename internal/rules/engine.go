package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// Engine evaluates the rule set against a set of materials. It is pure:
// no I/O, no clock, no randomness, so equal inputs always produce equal
// findings in equal order.
type Engine struct {
	classes []Class
	rules   []Rule
}

// NewEngine builds an engine from a validated configuration. The rule
// order inside cfg does not matter; the engine sorts its own copy.
func NewEngine(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rs := make([]Rule, len(cfg.Rules))
	copy(rs, cfg.Rules)
	sortRules(rs)
	return &Engine{classes: cfg.Classes, rules: rs}, nil
}

// Classify returns the class tags assigned to a material, sorted.
// Exposed for diagnostics and the screen command.
func (e *Engine) Classify(m domain.Material) []string {
	set := classify(e.classes, m)
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Evaluate runs every rule against the participant materials and
// returns the findings sorted by severity descending, then rule ID
// ascending. A material may appear more than once in the input;
// duplicates count as distinct participants.
func (e *Engine) Evaluate(materials []domain.Material) []domain.HazardFinding {
	if len(materials) == 0 {
		return nil
	}

	parts := make([]participant, len(materials))
	for i, m := range materials {
		parts[i] = participant{material: m, tags: classify(e.classes, m)}
	}

	var findings []domain.HazardFinding
	for _, r := range e.rules {
		findings = append(findings, fireRule(r, parts)...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return strings.Join(a.MaterialIDs, "\x00") < strings.Join(b.MaterialIDs, "\x00")
	})
	return findings
}

type participant struct {
	material domain.Material
	tags     map[string]bool
}

func (p participant) satisfies(entry string) bool {
	if p.tags[entry] {
		return true
	}
	return casShape.MatchString(entry) && p.material.CAS == entry
}

// fireRule enumerates every assignment of distinct participants to the
// rule's match entries and emits one finding per distinct participant
// set. Assignments that cover the entries with the same participants in
// a different order collapse into a single finding.
func fireRule(r Rule, parts []participant) []domain.HazardFinding {
	seen := map[string]bool{}
	var out []domain.HazardFinding

	used := make([]bool, len(parts))
	var chosen []int

	var walk func(entry int)
	walk = func(entry int) {
		if entry == len(r.Match) {
			set := make([]int, len(chosen))
			copy(set, chosen)
			sort.Ints(set)
			key := keyOf(set)
			if seen[key] {
				return
			}
			seen[key] = true
			out = append(out, renderFinding(r, parts, set))
			return
		}
		for i, p := range parts {
			if used[i] || !p.satisfies(r.Match[entry]) {
				continue
			}
			used[i] = true
			chosen = append(chosen, i)
			walk(entry + 1)
			chosen = chosen[:len(chosen)-1]
			used[i] = false
		}
	}
	walk(0)

	sort.SliceStable(out, func(i, j int) bool {
		return strings.Join(out[i].MaterialIDs, "\x00") < strings.Join(out[j].MaterialIDs, "\x00")
	})
	return out
}

func keyOf(set []int) string {
	var b strings.Builder
	for _, i := range set {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
	}
	return b.String()
}

func renderFinding(r Rule, parts []participant, set []int) domain.HazardFinding {
	ids := make([]string, len(set))
	names := make([]string, len(set))
	for n, i := range set {
		ids[n] = parts[i].material.ID
		names[n] = parts[i].material.DisplayName
	}
	sort.Strings(ids)

	msg := strings.ReplaceAll(r.MessageTemplate, "{materials}", strings.Join(names, " + "))

	refs := make([]domain.SectionNumber, len(r.References))
	for i, ref := range r.References {
		refs[i] = domain.SectionNumber(ref)
	}

	return domain.HazardFinding{
		RuleID:      r.ID,
		Severity:    r.Severity,
		MaterialIDs: ids,
		Message:     msg,
		References:  refs,
	}
}
