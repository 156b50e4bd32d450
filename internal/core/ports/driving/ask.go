package driving

import (
	"context"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// AnswerService answers free-form and guided incident queries with
// grounded, cited advisory text, refusing when the evidence is thin.
type AnswerService interface {
	// Ask resolves materials, screens the mixture, retrieves passages and
	// produces a cited answer or a refusal. It never returns a partial
	// answer: on cancellation or upstream failure the answer is a refusal
	// with a diagnostic.
	Ask(ctx context.Context, query domain.Query) (domain.Answer, error)
}

// ScreenService runs the deterministic hazard rule engine standalone.
type ScreenService interface {
	// Screen resolves the given surface names and evaluates the hazard
	// rules over the resolved materials. Unresolvable names are returned
	// separately so the caller can warn about them.
	Screen(ctx context.Context, materials []string) (findings []domain.HazardFinding, unresolved []string, err error)
}
