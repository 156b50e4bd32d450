package driven

import "context"

// Generator produces text completions from a generative model.
// No tool calls and no streaming: the orchestrator validates the final
// text before anything reaches the user.
//
// Implementations may include:
//   - OpenAI chat completions
//   - Gemini generateContent
//   - A scriptable mock for tests and offline use
type Generator interface {
	// Complete generates text from a system prompt and a user prompt.
	// The deadline is carried by ctx.
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
