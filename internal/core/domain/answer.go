package domain

// AnswerOrigin tags which path produced an answer.
type AnswerOrigin string

// Answer origins.
const (
	// OriginRefusal is a refusal: no grounded answer could be produced.
	OriginRefusal AnswerOrigin = "refusal"

	// OriginRulesOnly is a deterministic answer from the hazard rule
	// engine alone, with no generative content.
	OriginRulesOnly AnswerOrigin = "rules_only"

	// OriginRulesPlusGenerative combines hazard findings with a grounded
	// generative answer.
	OriginRulesPlusGenerative AnswerOrigin = "rules_plus_generative"

	// OriginGenerativeOnly is a grounded generative answer with no
	// hazard findings.
	OriginGenerativeOnly AnswerOrigin = "generative_only"
)

// Answer is the assistant's response to one query.
type Answer struct {
	// Refusal is true when the assistant declined to answer.
	Refusal bool

	// Body is the advisory text. For refusals it is the fixed refusal
	// preamble plus section pointers.
	Body string

	// Citations back every factual sentence of the body. Empty on
	// refusals, where retrieved citations move to SeeAlso.
	Citations []Citation

	// Findings are the hazard rule firings for this query.
	Findings []HazardFinding

	// Origin tags the path that produced the answer.
	Origin AnswerOrigin

	// Diagnostic carries a machine-readable reason on refusals
	// (e.g. "insufficient_context", "upstream", "operation_timeout").
	Diagnostic string

	// SeeAlso lists citations that were retrieved but not used to ground
	// the body, surfaced with refusals as pointers.
	SeeAlso []Citation
}
