package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

func resetIncidentFlags() {
	incidentScenario = ""
	incidentMaterials = nil
	incidentRoute = ""
	incidentAmount = ""
}

func TestIncidentCmd_RejectsUnknownScenario(t *testing.T) {
	SetServices(Deps{Answer: &stubAnswerService{}})
	defer resetServices()
	defer resetIncidentFlags()

	_, err := execute("incident", "-s", "earthquake", "-m", "acetone")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scenario")
}

func TestIncidentCmd_RequiresMaterial(t *testing.T) {
	SetServices(Deps{Answer: &stubAnswerService{}})
	defer resetServices()
	defer resetIncidentFlags()

	_, err := execute("incident", "-s", "first_aid")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "material")
}

func TestIncidentCmd_PassesStructuredQuery(t *testing.T) {
	stub := &stubAnswerService{answer: domain.Answer{Body: "Rinse eyes [1]."}}
	SetServices(Deps{Answer: stub})
	defer resetServices()
	defer resetIncidentFlags()

	out, err := execute("incident",
		"-s", "first_aid", "-m", "acetone", "-r", "eye", "-a", "small")
	require.NoError(t, err)

	assert.Contains(t, out, "Rinse eyes")
	assert.Equal(t, domain.ScenarioFirstAid, stub.lastQuery.Scenario)
	assert.Equal(t, []string{"acetone"}, stub.lastQuery.Materials)
	assert.Equal(t, "eye", stub.lastQuery.ExposureRoute)
	assert.Equal(t, domain.AmountSmall, stub.lastQuery.Amount)
	assert.Empty(t, stub.lastQuery.Text)
}

func TestIncidentCmd_RejectsUnknownAmount(t *testing.T) {
	SetServices(Deps{Answer: &stubAnswerService{}})
	defer resetServices()
	defer resetIncidentFlags()

	_, err := execute("incident", "-s", "spill_cleanup", "-m", "acetone", "-a", "gallons")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown amount")
}
