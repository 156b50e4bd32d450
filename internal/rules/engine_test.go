package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := LoadDefault()
	require.NoError(t, err)
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	return eng
}

func material(id, name, cas string, codes ...string) domain.Material {
	return domain.Material{
		ID:            id,
		DisplayName:   name,
		CAS:           cas,
		HazardClasses: codes,
	}
}

func TestLoadDefaultValidates(t *testing.T) {
	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Classes)
	assert.NotEmpty(t, cfg.Rules)
}

func TestEvaluatePeroxideAcidForbids(t *testing.T) {
	eng := defaultEngine(t)

	findings := eng.Evaluate([]domain.Material{
		material("m1", "Hydrogen Peroxide 30%", "7722-84-1"),
		material("m2", "Sulfuric Acid", "7664-93-9"),
	})

	require.NotEmpty(t, findings)
	assert.Equal(t, domain.SeverityForbid, findings[0].Severity)
	assert.Equal(t, "acid-peroxide-piranha", findings[0].RuleID)
	assert.ElementsMatch(t, []string{"m1", "m2"}, findings[0].MaterialIDs)
	assert.Contains(t, findings[0].Message, "Hydrogen Peroxide 30%")
}

func TestEvaluateHydrofluoricAcidPair(t *testing.T) {
	eng := defaultEngine(t)

	findings := eng.Evaluate([]domain.Material{
		material("hf", "Hydrofluoric Acid", "7664-39-3"),
		material("hcl", "Hydrochloric Acid", "7647-01-0"),
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "hf-strong-acid", findings[0].RuleID)
	assert.Equal(t, domain.SeverityDanger, findings[0].Severity)
	assert.Contains(t, findings[0].References, domain.SectionNumber(4))
}

func TestEvaluateMatchesByNameWithoutCAS(t *testing.T) {
	eng := defaultEngine(t)

	// Ad-hoc materials carry no registry number; class patterns must
	// still classify them by name.
	findings := eng.Evaluate([]domain.Material{
		material("a", "household bleach", ""),
		material("b", "ammonia solution", ""),
	})

	require.NotEmpty(t, findings)
	ids := ruleIDs(findings)
	assert.Contains(t, ids, "hypochlorite-ammonia")
}

func TestEvaluateMatchesByHazardCode(t *testing.T) {
	eng := defaultEngine(t)

	findings := eng.Evaluate([]domain.Material{
		material("x", "Proprietary Catalyst XR-7", "", "H250"),
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "pyrophoric-present", findings[0].RuleID)
	assert.Equal(t, domain.SeverityWarn, findings[0].Severity)
}

func TestEvaluateSingleEntryRuleFiresPerParticipant(t *testing.T) {
	eng := defaultEngine(t)

	findings := eng.Evaluate([]domain.Material{
		material("p1", "tert-Butyllithium", "594-19-4"),
		material("p2", "Trimethylaluminium", "75-24-1"),
	})

	var pyro []domain.HazardFinding
	for _, f := range findings {
		if f.RuleID == "pyrophoric-present" {
			pyro = append(pyro, f)
		}
	}
	require.Len(t, pyro, 2)
	assert.Equal(t, []string{"p1"}, pyro[0].MaterialIDs)
	assert.Equal(t, []string{"p2"}, pyro[1].MaterialIDs)
}

func TestEvaluateDeduplicatesParticipantSets(t *testing.T) {
	eng := defaultEngine(t)

	// Each rule must report a participant pair exactly once even when
	// the pair satisfies the rule through several match paths.
	findings := eng.Evaluate([]domain.Material{
		material("s", "Sulfuric Acid", "7664-93-9"),
		material("a", "Acetone", "67-64-1"),
	})

	counts := map[string]int{}
	for _, f := range findings {
		counts[f.RuleID]++
	}
	for id, n := range counts {
		assert.Equal(t, 1, n, "rule %s reported %d times", id, n)
	}
	assert.Contains(t, counts, "sulfuric-acetone")
}

func TestEvaluateIsDeterministic(t *testing.T) {
	eng := defaultEngine(t)

	mats := []domain.Material{
		material("m1", "Sodium Hypochlorite", "7681-52-9"),
		material("m2", "Hydrochloric Acid", "7647-01-0"),
		material("m3", "Ammonia", "7664-41-7"),
		material("m4", "Acetone", "67-64-1"),
	}

	first := eng.Evaluate(mats)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, eng.Evaluate(mats))
	}
}

func TestEvaluateOrdersBySeverityThenRuleID(t *testing.T) {
	eng := defaultEngine(t)

	findings := eng.Evaluate([]domain.Material{
		material("m1", "Hydrogen Peroxide 30%", "7722-84-1"),
		material("m2", "Sulfuric Acid", "7664-93-9"),
		material("m3", "tert-Butyllithium", "594-19-4"),
	})

	require.True(t, len(findings) >= 2)
	for i := 1; i < len(findings); i++ {
		prev, cur := findings[i-1], findings[i]
		if prev.Severity.Rank() == cur.Severity.Rank() {
			assert.LessOrEqual(t, prev.RuleID, cur.RuleID)
		} else {
			assert.Greater(t, prev.Severity.Rank(), cur.Severity.Rank())
		}
	}
}

func TestEvaluateBenignPairIsQuiet(t *testing.T) {
	eng := defaultEngine(t)

	findings := eng.Evaluate([]domain.Material{
		material("m1", "Sodium Chloride", "7647-14-5"),
		material("m2", "Glycerol", "56-81-5"),
	})
	assert.Empty(t, findings)
}

func TestEvaluateEmptyInput(t *testing.T) {
	eng := defaultEngine(t)
	assert.Empty(t, eng.Evaluate(nil))
}

func TestMultiplicityRequiresDistinctParticipants(t *testing.T) {
	cfg := &Config{
		Classes: []Class{
			{Tag: "oxidizer", NamePatterns: []string{"peroxide"}},
		},
		Rules: []Rule{
			{
				ID:              "two-oxidizers",
				Severity:        domain.SeverityWarn,
				Match:           []string{"oxidizer", "oxidizer"},
				MessageTemplate: "two oxidizers stored together: {materials}",
			},
		},
	}
	eng, err := NewEngine(cfg)
	require.NoError(t, err)

	one := eng.Evaluate([]domain.Material{
		material("m1", "hydrogen peroxide", ""),
	})
	assert.Empty(t, one)

	two := eng.Evaluate([]domain.Material{
		material("m1", "hydrogen peroxide", ""),
		material("m2", "benzoyl peroxide", ""),
	})
	require.Len(t, two, 1)
	assert.ElementsMatch(t, []string{"m1", "m2"}, two[0].MaterialIDs)
}

func TestClassify(t *testing.T) {
	eng := defaultEngine(t)

	tags := eng.Classify(material("m", "Nitric Acid", "7697-37-2"))
	assert.Contains(t, tags, "oxidizer_strong")
	assert.Contains(t, tags, "acid_strong")
}

func TestConfigValidateRejectsUnknownSeverity(t *testing.T) {
	cfg := &Config{
		Classes: []Class{{Tag: "a"}},
		Rules: []Rule{
			{ID: "r", Severity: "catastrophic", Match: []string{"a"}, MessageTemplate: "x"},
		},
	}
	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}

func TestConfigValidateRejectsUnknownMatchEntry(t *testing.T) {
	cfg := &Config{
		Classes: []Class{{Tag: "a"}},
		Rules: []Rule{
			{ID: "r", Severity: domain.SeverityWarn, Match: []string{"no_such_tag"}, MessageTemplate: "x"},
		},
	}
	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_tag")
}

func ruleIDs(fs []domain.HazardFinding) []string {
	ids := make([]string, len(fs))
	for i, f := range fs {
		ids[i] = f.RuleID
	}
	return ids
}
