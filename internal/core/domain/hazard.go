package domain

// Severity ranks hazard findings. Forbid findings are non-overridable:
// the orchestrator surfaces them and never substitutes a generative answer
// that contradicts them.
type Severity string

// Severities, weakest first.
const (
	SeverityInfo   Severity = "info"
	SeverityWarn   Severity = "warn"
	SeverityDanger Severity = "danger"
	SeverityForbid Severity = "forbid"
)

// severityRank orders severities for deterministic reporting.
var severityRank = map[Severity]int{
	SeverityInfo:   0,
	SeverityWarn:   1,
	SeverityDanger: 2,
	SeverityForbid: 3,
}

// IsValid returns true if the severity is recognised.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the ordering weight of the severity, higher is graver.
func (s Severity) Rank() int {
	return severityRank[s]
}

// HazardFinding is one rule firing against a set of participating materials.
type HazardFinding struct {
	// RuleID identifies the rule that fired.
	RuleID string

	// Severity is the rule's severity.
	Severity Severity

	// MaterialIDs are the participants that satisfied the rule,
	// sorted for deterministic output.
	MaterialIDs []string

	// Message is the rendered finding text.
	Message string

	// References are SDS section numbers the reader should consult.
	References []SectionNumber
}
