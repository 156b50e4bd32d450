package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("ask")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_PrintsAnswerWithCitations(t *testing.T) {
	stub := &stubAnswerService{answer: domain.Answer{
		Body:   "Rinse skin with water for 15 minutes [1].",
		Origin: domain.OriginGenerativeOnly,
		Citations: []domain.Citation{
			{MaterialName: "Acetone", Section: 4, Page: 3},
		},
	}}
	SetServices(Deps{Answer: stub})
	defer resetServices()

	out, err := execute("ask", "splashed acetone on my hand")
	require.NoError(t, err)

	assert.Contains(t, out, "Rinse skin with water")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Acetone, Section 4, page 3")
	assert.Equal(t, "splashed acetone on my hand", stub.lastQuery.Text)
}

func TestAskCmd_MaterialFlagRepeatable(t *testing.T) {
	stub := &stubAnswerService{answer: domain.Answer{Body: "ok"}}
	SetServices(Deps{Answer: stub})
	defer resetServices()

	_, err := execute("ask", "can I mix these", "-m", "bleach", "-m", "ammonia")
	require.NoError(t, err)

	assert.Equal(t, []string{"bleach", "ammonia"}, stub.lastQuery.Materials)
	askMaterials = nil
}

func TestAskCmd_PrintsRefusalDiagnostic(t *testing.T) {
	stub := &stubAnswerService{answer: domain.Answer{
		Refusal:    true,
		Body:       "I can't give a reliable answer to this.",
		Origin:     domain.OriginRefusal,
		Diagnostic: "insufficient_context",
		SeeAlso: []domain.Citation{
			{MaterialName: "Acetone", Section: 10, Page: 7},
		},
	}}
	SetServices(Deps{Answer: stub})
	defer resetServices()

	out, err := execute("ask", "something obscure")
	require.NoError(t, err)

	assert.Contains(t, out, "reliable answer")
	assert.Contains(t, out, "See also:")
	assert.Contains(t, out, "Acetone, Section 10, page 7")
	assert.Contains(t, out, "(no answer: insufficient_context)")
}

func TestAskCmd_PrintsFindingsExactlyOnce(t *testing.T) {
	// The body already leads with the finding; the finding must not be
	// rendered a second time from the structured field.
	stub := &stubAnswerService{answer: domain.Answer{
		Body:   "[DANGER] Mixing bleach and ammonia releases chloramine gas.\n\nVentilate the area [1].",
		Origin: domain.OriginRulesPlusGenerative,
		Findings: []domain.HazardFinding{
			{RuleID: "hypochlorite-ammonia", Severity: domain.SeverityDanger,
				Message: "Mixing bleach and ammonia releases chloramine gas."},
		},
	}}
	SetServices(Deps{Answer: stub})
	defer resetServices()

	out, err := execute("ask", "I mixed bleach and ammonia")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "[DANGER]"))
	assert.Less(t, strings.Index(out, "[DANGER]"), strings.Index(out, "Ventilate"))
}

func TestAskCmd_NoServiceConfigured(t *testing.T) {
	resetServices()

	_, err := execute("ask", "anything")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
