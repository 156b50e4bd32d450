package driven

// Prompt template names.
const (
	// PromptGroundedAnswer instructs the generator to answer only from
	// the supplied passages and cite every factual sentence.
	PromptGroundedAnswer = "grounded_answer"

	// PromptGroundedSystem is the system prompt for the grounded path.
	PromptGroundedSystem = "grounded_system"

	// PromptRefusal is the fixed refusal preamble.
	PromptRefusal = "refusal"
)

// PromptStore loads prompt templates. Prompts are data, not code:
// they live in user-editable files with embedded defaults, so wording
// can change without recompilation.
type PromptStore interface {
	// Load returns the template for the given name.
	Load(name string) (string, error)
}
